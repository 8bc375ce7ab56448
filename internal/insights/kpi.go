package insights

import "github.com/radiusdt/storefront-insights/internal/models"

// Deltas are relative changes against the previous period.
type Deltas struct {
	ContactClicks float64 `json:"contactClicks"`
	MapClicks     float64 `json:"mapClicks"`
	Impressions   float64 `json:"impressions"`
	CTR           float64 `json:"ctr"`
}

// KPIs are the headline numbers of the dashboard.
type KPIs struct {
	ContactClicks int     `json:"contactClicks"`
	MapClicks     int     `json:"mapClicks"`
	Impressions   int     `json:"impressions"`
	CTR           float64 `json:"ctr"`
	Deltas        Deltas  `json:"deltas"`
}

type clickCounts struct {
	contact     int
	mapRoute    int
	impressions int
}

func countClicks(events []*models.ClickEvent) clickCounts {
	var c clickCounts
	for _, ev := range events {
		if ev == nil {
			continue
		}
		c.impressions++
		switch ev.ClickType {
		case models.ClickContact:
			c.contact++
		case models.ClickMapRoute:
			c.mapRoute++
		}
	}
	return c
}

func (c clickCounts) ctr() float64 {
	if c.impressions == 0 {
		return 0
	}
	return float64(c.contact+c.mapRoute) / float64(c.impressions)
}

// Delta is (cur-prev)/prev. A zero baseline reports 1 (100% growth)
// when there is any current activity and 0 otherwise.
func Delta(cur, prev float64) float64 {
	if prev > 0 {
		return (cur - prev) / prev
	}
	if cur > 0 {
		return 1
	}
	return 0
}

// ComputeKPIs counts the current period and compares it to the previous one.
func ComputeKPIs(current, previous []*models.ClickEvent) KPIs {
	cur := countClicks(current)
	prev := countClicks(previous)

	return KPIs{
		ContactClicks: cur.contact,
		MapClicks:     cur.mapRoute,
		Impressions:   cur.impressions,
		CTR:           cur.ctr(),
		Deltas: Deltas{
			ContactClicks: Delta(float64(cur.contact), float64(prev.contact)),
			MapClicks:     Delta(float64(cur.mapRoute), float64(prev.mapRoute)),
			Impressions:   Delta(float64(cur.impressions), float64(prev.impressions)),
			CTR:           Delta(cur.ctr(), prev.ctr()),
		},
	}
}
