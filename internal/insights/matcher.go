package insights

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NameMatcher maps a product name to the key used to treat products of
// different stores as "the same product".
type NameMatcher interface {
	Key(name string) string
}

// ExactMatcher groups by the stored name as-is: case-sensitive, untrimmed.
type ExactMatcher struct{}

func (ExactMatcher) Key(name string) string { return name }

// NormalizedMatcher case-folds, trims and strips diacritics, so
// "Tinta Spray " and "tinta spráy" share a key.
type NormalizedMatcher struct{}

// Key is safe for concurrent use: transformers and casers keep state, so
// both are built per call.
func (NormalizedMatcher) Key(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// MatcherFor returns the matcher configured by mode ("exact" or "normalized").
func MatcherFor(mode string) NameMatcher {
	if mode == "normalized" {
		return NormalizedMatcher{}
	}
	return ExactMatcher{}
}
