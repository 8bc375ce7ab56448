package insights

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("")
	require.NoError(t, err)
	assert.Equal(t, Period7d, sel)

	sel, err = ParseSelector("30d")
	require.NoError(t, err)
	assert.Equal(t, Period30d, sel)
	assert.Equal(t, 30, sel.Days())

	for _, bad := range []string{"90d", "7D", "week"} {
		_, err := ParseSelector(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewPeriod(t *testing.T) {
	p := NewPeriod(Period7d, testNow, time.UTC)

	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), p.Current.End)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), p.Current.Start)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), p.Previous.Start)
	assert.Equal(t, p.Current.Start, p.Previous.End)
	assert.Equal(t, Daily, p.Granularity)

	p = NewPeriod(Period30d, testNow, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 13, 0, 0, 0, 0, time.UTC), p.Current.Start)
	assert.Equal(t, 30*24*time.Hour, p.Current.Duration())
	assert.Equal(t, Weekly, p.Granularity)
}

func TestNewPeriodUsesLocalMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:30 UTC on the 14th is still the 13th in São Paulo.
	now := time.Date(2024, 3, 14, 1, 30, 0, 0, time.UTC)
	p := NewPeriod(Period7d, now, loc)

	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, loc), p.Current.End)
}

func TestDailyBucketsLabelsAndBoundaries(t *testing.T) {
	p := NewPeriod(Period7d, testNow, time.UTC)
	b := NewBucketer(p, LocaleFor("pt-BR"))

	assert.Equal(t, []string{"qui", "sex", "sáb", "dom", "seg", "ter", "qua"}, b.Labels())

	boundary := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, b.Assign(boundary), "midnight belongs to the later day")
	assert.Equal(t, 0, b.Assign(boundary.Add(-time.Nanosecond)))
	assert.Equal(t, -1, b.Assign(p.Current.End))
	assert.Equal(t, -1, b.Assign(p.Current.Start.Add(-time.Second)))
	assert.Equal(t, 6, b.Assign(p.Current.End.Add(-time.Nanosecond)))

	en := NewBucketer(p, LocaleFor("en"))
	assert.Equal(t, "Thu", en.Labels()[0])
}

func TestDailyBucketsAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2024, 3, 12, 10, 0, 0, 0, loc)
	p := NewPeriod(Period7d, now, loc)
	assert.Equal(t, 7*24*time.Hour-time.Hour, p.Current.Duration())

	b := NewBucketer(p, LocaleFor("en"))
	buckets := b.Buckets()
	require.Len(t, buckets, 7)
	assert.Equal(t, 23*time.Hour, buckets[4].End.Sub(buckets[4].Start))
	assert.Equal(t, 4, b.Assign(time.Date(2024, 3, 10, 23, 30, 0, 0, loc)))
	assert.Equal(t, 5, b.Assign(time.Date(2024, 3, 11, 0, 0, 0, 0, loc)))
}

func TestWeeklyBuckets(t *testing.T) {
	p := NewPeriod(Period30d, testNow, time.UTC)
	b := NewBucketer(p, LocaleFor("pt-BR"))

	assert.Equal(t, []string{"Sem 1", "Sem 2", "Sem 3", "Sem 4"}, b.Labels())

	width := p.Current.Duration() / 4
	assert.Equal(t, 1, b.Assign(p.Current.Start.Add(width)))
	assert.Equal(t, 0, b.Assign(p.Current.Start.Add(width-time.Nanosecond)))
	assert.Equal(t, 3, b.Assign(p.Current.End.Add(-time.Nanosecond)))
	assert.Equal(t, -1, b.Assign(p.Current.End))
}

func TestWeeklyUniformDistribution(t *testing.T) {
	p := NewPeriod(Period30d, testNow, time.UTC)
	b := NewBucketer(p, LocaleFor("pt-BR"))

	var events []*models.ClickEvent
	for ts := p.Current.Start; ts.Before(p.Current.End); ts = ts.Add(time.Hour) {
		events = append(events, &models.ClickEvent{OccurredAt: ts})
	}

	values := b.Count(events)
	require.Len(t, values, 4)
	for _, v := range values {
		assert.InDelta(t, len(events)/4, v, 1)
	}
}

func TestSeriesSumMatchesImpressions(t *testing.T) {
	agg := &Aggregator{Locale: LocaleFor("pt-BR"), Location: time.UTC}

	for _, sel := range []Selector{Period7d, Period30d} {
		t.Run(string(sel), func(t *testing.T) {
			p := NewPeriod(sel, testNow, time.UTC)

			var events []*models.ClickEvent
			step := p.Current.Duration() / 37
			for i := 0; i < 37; i++ {
				events = append(events, &models.ClickEvent{
					ID:         string(rune('A' + i)),
					ClickType:  models.ClickContact,
					OccurredAt: p.Current.Start.Add(time.Duration(i)*step + 13*time.Minute),
				})
			}

			bundle := agg.Compute(p, Snapshot{Current: events}, testNow)

			sum := 0
			for _, v := range bundle.Series.Values {
				sum += v
			}
			assert.Equal(t, bundle.KPIs.Impressions, sum)
			assert.Equal(t, 37, bundle.Series.Total)
			assert.Equal(t, 1.0, bundle.Series.Delta)
		})
	}
}
