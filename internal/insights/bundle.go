package insights

import (
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
)

// Series is the bucketed impression count over the current period.
type Series struct {
	Title     string   `json:"title"`
	Labels    []string `json:"labels"`
	Values    []int    `json:"values"`
	Total     int      `json:"total"`
	PrevTotal int      `json:"prevTotal"`
	Delta     float64  `json:"delta"`
}

// Bundle is everything the dashboard page renders.
type Bundle struct {
	KPIs             KPIs               `json:"kpis"`
	Series           Series             `json:"series"`
	OwnRanking       []OwnRankingEntry  `json:"ownRanking"`
	CityRanking      []CityRankingEntry `json:"cityRanking"`
	RecentActivity   []ActivityItem     `json:"recentActivity"`
	OpportunityTerms []string           `json:"opportunityTerms"`
}

// EmptyBundle is the all-zero bundle served when there is nothing (or
// nothing reliable) to show. Slices are non-nil so they encode as [].
func EmptyBundle(title string) Bundle {
	return Bundle{
		Series: Series{
			Title:  title,
			Labels: []string{},
			Values: []int{},
		},
		OwnRanking:       []OwnRankingEntry{},
		CityRanking:      []CityRankingEntry{},
		RecentActivity:   []ActivityItem{},
		OpportunityTerms: []string{},
	}
}

// Snapshot is the fetched input of one dashboard build.
type Snapshot struct {
	OwnProducts []*models.Product
	Current     []*models.ClickEvent
	Previous    []*models.ClickEvent
	City        []*models.ClickEvent
}

// Aggregator reduces a Snapshot to a Bundle. It holds no mutable state.
type Aggregator struct {
	Locale    Locale
	Location  *time.Location
	Ranker    Ranker
	FeedLimit int
}

// Title returns the series title for sel.
func (a *Aggregator) Title(sel Selector) string {
	if sel == Period30d {
		return a.Locale.Title30d
	}
	return a.Locale.Title7d
}

// Compute builds the bundle for period p from snap as seen at now.
func (a *Aggregator) Compute(p Period, snap Snapshot, now time.Time) Bundle {
	kpis := ComputeKPIs(snap.Current, snap.Previous)

	bucketer := NewBucketer(p, a.Locale)
	values := bucketer.Count(snap.Current)
	total := 0
	for _, v := range values {
		total += v
	}

	prevTotal := countClicks(snap.Previous).impressions

	rankings := a.Ranker.Rank(snap.OwnProducts, snap.Current, snap.City)

	feedLimit := a.FeedLimit
	if feedLimit <= 0 {
		feedLimit = 8
	}

	return Bundle{
		KPIs: kpis,
		Series: Series{
			Title:     a.Title(p.Selector),
			Labels:    bucketer.Labels(),
			Values:    values,
			Total:     total,
			PrevTotal: prevTotal,
			Delta:     Delta(float64(total), float64(prevTotal)),
		},
		OwnRanking:       rankings.Own,
		CityRanking:      rankings.City,
		RecentActivity:   RecentActivity(snap.Current, now, feedLimit, a.Locale, a.Location),
		OpportunityTerms: rankings.OpportunityTerms,
	}
}
