package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
)

// ActivityItem is one row of the recent-activity feed.
type ActivityItem struct {
	ID          string           `json:"id"`
	ProductID   string           `json:"productId"`
	ProductName string           `json:"productName"`
	ClickType   models.ClickType `json:"clickType"`
	OccurredAt  time.Time        `json:"occurredAt"`
	Ago         string           `json:"ago"`
}

// RecentActivity returns the newest limit events, newest first.
func RecentActivity(events []*models.ClickEvent, now time.Time, limit int, locale Locale, loc *time.Location) []ActivityItem {
	sorted := make([]*models.ClickEvent, 0, len(events))
	for _, ev := range events {
		if ev != nil {
			sorted = append(sorted, ev)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})
	sorted = truncate(sorted, limit)

	items := make([]ActivityItem, 0, len(sorted))
	for _, ev := range sorted {
		item := ActivityItem{
			ID:         ev.ID,
			ProductID:  ev.ProductID,
			ClickType:  ev.ClickType,
			OccurredAt: ev.OccurredAt,
			Ago:        RelativeTime(ev.OccurredAt, now, locale, loc),
		}
		if ev.Product != nil {
			item.ProductName = ev.Product.Name
		}
		items = append(items, item)
	}
	return items
}

// RelativeTime renders t relative to now. Anything older than a week is
// shown as a date in loc.
func RelativeTime(t, now time.Time, locale Locale, loc *time.Location) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return locale.JustNow
	case d < time.Hour:
		return fmt.Sprintf(locale.MinutesAgo, int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf(locale.HoursAgo, int(d/time.Hour))
	case d <= 7*24*time.Hour:
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return locale.DayAgo
		}
		return fmt.Sprintf(locale.DaysAgo, days)
	default:
		if loc == nil {
			loc = time.UTC
		}
		return t.In(loc).Format(locale.DateLayout)
	}
}
