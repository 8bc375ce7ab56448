package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/radiusdt/storefront-insights/internal/config"
	"go.uber.org/zap"
)

// InternalPathPrefix marks collaborator hooks guarded by the API key
// instead of an owner session.
const InternalPathPrefix = "/internal/"

// AuthMiddleware authenticates owners by bearer JWT and backend
// collaborators by API key.
type AuthMiddleware struct {
	cfg    config.AuthConfig
	logger *zap.Logger
}

func NewAuthMiddleware(cfg config.AuthConfig, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, logger: logger}
}

func (a *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, InternalPathPrefix) {
			a.requireAPIKey(next, w, r)
			return
		}

		if a.shouldSkip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !a.cfg.Enabled {
			// auth off: the owner comes from a plain header
			if owner := r.Header.Get(OwnerIDHeader); owner != "" {
				r = r.WithContext(context.WithValue(r.Context(), OwnerIDContextKey, owner))
			}
			next.ServeHTTP(w, r)
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			a.unauthorized(w, "missing bearer token")
			return
		}

		ownerID, err := a.ParseToken(token)
		if err != nil {
			a.logger.Warn("rejected session token",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			a.unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), OwnerIDContextKey, ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ParseToken validates an HS256 token and returns its subject, which must
// be a UUID.
func (a *AuthMiddleware) ParseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(a.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return "", errors.New("token is not valid")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("invalid subject: %w", err)
	}
	return id.String(), nil
}

func (a *AuthMiddleware) requireAPIKey(next http.Handler, w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		a.unauthorized(w, "missing API key")
		return
	}
	if !a.validateKey(key) {
		a.logger.Warn("invalid API key attempt",
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
		)
		a.unauthorized(w, "invalid API key")
		return
	}
	next.ServeHTTP(w, r)
}

func (a *AuthMiddleware) shouldSkip(path string) bool {
	for _, skip := range a.cfg.SkipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

// validateKey never accepts anything when no key is configured.
func (a *AuthMiddleware) validateKey(key string) bool {
	if a.cfg.APIKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(a.cfg.APIKey)) == 1
}

func (a *AuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSONError(w, http.StatusUnauthorized, message)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
