package insights

import (
	"fmt"
	"sort"
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
)

// weeklyBuckets is the fixed number of buckets for the 30-day view.
const weeklyBuckets = 4

// Bucket is one labelled sub-interval [Start, End) of a period.
type Bucket struct {
	Label string
	Start time.Time
	End   time.Time
}

// Bucketer splits a period into buckets and assigns timestamps to them.
type Bucketer struct {
	window      models.DateRange
	granularity Granularity
	width       time.Duration
	buckets     []Bucket
}

// NewBucketer builds the buckets for the current window of p.
func NewBucketer(p Period, locale Locale) *Bucketer {
	b := &Bucketer{
		window:      p.Current,
		granularity: p.Granularity,
	}

	switch p.Granularity {
	case Weekly:
		b.width = p.Current.Duration() / weeklyBuckets
		for i := 0; i < weeklyBuckets; i++ {
			start := p.Current.Start.Add(time.Duration(i) * b.width)
			end := start.Add(b.width)
			if i == weeklyBuckets-1 {
				end = p.Current.End
			}
			b.buckets = append(b.buckets, Bucket{
				Label: fmt.Sprintf(locale.WeekLabel, i+1),
				Start: start,
				End:   end,
			})
		}
	default:
		for d := p.Current.Start; d.Before(p.Current.End); d = d.AddDate(0, 0, 1) {
			end := d.AddDate(0, 0, 1)
			if end.After(p.Current.End) {
				end = p.Current.End
			}
			b.buckets = append(b.buckets, Bucket{
				Label: locale.WeekdayAbbrev(d.Weekday()),
				Start: d,
				End:   end,
			})
		}
	}

	return b
}

// Buckets returns the ordered buckets.
func (b *Bucketer) Buckets() []Bucket {
	return b.buckets
}

// Labels returns the bucket labels in order.
func (b *Bucketer) Labels() []string {
	labels := make([]string, len(b.buckets))
	for i, bk := range b.buckets {
		labels[i] = bk.Label
	}
	return labels
}

// Assign returns the bucket index for t, or -1 when t is outside the
// window. A timestamp on a boundary belongs to the later bucket.
func (b *Bucketer) Assign(t time.Time) int {
	if len(b.buckets) == 0 || !b.window.Contains(t) {
		return -1
	}

	if b.granularity == Weekly {
		if b.width <= 0 {
			return -1
		}
		// the last bucket absorbs the remainder of the integer division
		idx := int(t.Sub(b.window.Start) / b.width)
		if idx >= len(b.buckets) {
			idx = len(b.buckets) - 1
		}
		return idx
	}

	return sort.Search(len(b.buckets), func(i int) bool {
		return b.buckets[i].End.After(t)
	})
}

// Count tallies events per bucket. Unassigned events are dropped.
func (b *Bucketer) Count(events []*models.ClickEvent) []int {
	values := make([]int, len(b.buckets))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if idx := b.Assign(ev.OccurredAt); idx >= 0 {
			values[idx]++
		}
	}
	return values
}
