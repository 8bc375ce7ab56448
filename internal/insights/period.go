package insights

import (
	"fmt"
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
)

// Selector picks the reporting window.
type Selector string

const (
	Period7d  Selector = "7d"
	Period30d Selector = "30d"
)

// Granularity of the time series.
type Granularity int

const (
	Daily Granularity = iota
	Weekly
)

// ParseSelector validates a period query value. Empty means 7d.
func ParseSelector(s string) (Selector, error) {
	switch Selector(s) {
	case "":
		return Period7d, nil
	case Period7d, Period30d:
		return Selector(s), nil
	default:
		return "", fmt.Errorf("unsupported period %q", s)
	}
}

// Days returns the window length in calendar days.
func (s Selector) Days() int {
	if s == Period30d {
		return 30
	}
	return 7
}

// Period is the current window plus the same-length window right before it.
type Period struct {
	Selector    Selector
	Current     models.DateRange
	Previous    models.DateRange
	Granularity Granularity
}

// NewPeriod builds the window ending at the end of today (in loc).
// Calendar days are stepped with AddDate, so a window crossing a DST
// change is one hour shorter or longer than days*24h.
func NewPeriod(sel Selector, now time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	days := sel.Days()
	end := midnight.AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -days)
	prevStart := start.AddDate(0, 0, -days)

	g := Daily
	if sel == Period30d {
		g = Weekly
	}

	return Period{
		Selector:    sel,
		Current:     models.DateRange{Start: start, End: end},
		Previous:    models.DateRange{Start: prevStart, End: start},
		Granularity: g,
	}
}
