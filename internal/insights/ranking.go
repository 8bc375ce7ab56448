package insights

import (
	"sort"

	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/shopspring/decimal"
)

// CityRankingEntry is a product name ranked by city-wide interest.
type CityRankingEntry struct {
	Name        string   `json:"name"`
	Interest    int      `json:"interest"`
	Stores      int      `json:"stores"`
	MedianPrice *float64 `json:"medianPrice"`
	HasMine     bool     `json:"hasMine"`
	MyPrice     *float64 `json:"myPrice"`
	DiffPct     *float64 `json:"diffPct"`
}

// OwnRankingEntry is one of the store's own products ranked by interest.
type OwnRankingEntry struct {
	Name        string   `json:"name"`
	Interest    int      `json:"interest"`
	Price       *float64 `json:"price"`
	MedianPrice *float64 `json:"medianPrice"`
	DiffPct     *float64 `json:"diffPct"`
}

// Rankings is the output of the ranking analyzer.
type Rankings struct {
	City             []CityRankingEntry
	Own              []OwnRankingEntry
	OpportunityTerms []string
}

// Ranker groups events and products by name and compares prices.
type Ranker struct {
	Matcher NameMatcher
	Limit   int
}

type cityGroup struct {
	name     string
	key      string
	interest int
	stores   map[string]struct{}
	// prices keyed by product id, so a product clicked many times counts once.
	prices map[string]decimal.Decimal
}

type ownGroup struct {
	name     string
	key      string
	price    *decimal.Decimal
	interest int
}

type medianPrice struct {
	value decimal.Decimal
	ok    bool
}

// Rank builds the city ranking, the own ranking and the opportunity terms.
func (r Ranker) Rank(ownProducts []*models.Product, ownEvents, cityEvents []*models.ClickEvent) Rankings {
	matcher := r.Matcher
	if matcher == nil {
		matcher = ExactMatcher{}
	}

	cityGroups := groupCityEvents(cityEvents, matcher)
	medians := make(map[string]medianPrice, len(cityGroups))
	for _, g := range cityGroups {
		prices := make([]decimal.Decimal, 0, len(g.prices))
		for _, p := range g.prices {
			prices = append(prices, p)
		}
		m, ok := Median(prices)
		medians[g.key] = medianPrice{value: m, ok: ok}
	}

	ownGroups := groupOwnProducts(ownProducts, ownEvents, matcher)
	mine := make(map[string]*ownGroup, len(ownGroups))
	for _, g := range ownGroups {
		mine[g.key] = g
	}

	city := make([]CityRankingEntry, 0, len(cityGroups))
	for _, g := range cityGroups {
		med := medians[g.key]
		entry := CityRankingEntry{
			Name:     g.name,
			Interest: g.interest,
			Stores:   len(g.stores),
		}
		if med.ok {
			entry.MedianPrice = decimalPtrFloat(&med.value)
		}
		if own, ok := mine[g.key]; ok {
			entry.HasMine = true
			entry.MyPrice = decimalPtrFloat(own.price)
			entry.DiffPct = diffPct(own.price, med.value, med.ok)
		}
		city = append(city, entry)
	}
	sort.SliceStable(city, func(i, j int) bool { return city[i].Interest > city[j].Interest })

	own := make([]OwnRankingEntry, 0, len(ownGroups))
	for _, g := range ownGroups {
		med := medians[g.key]
		entry := OwnRankingEntry{
			Name:     g.name,
			Interest: g.interest,
			Price:    decimalPtrFloat(g.price),
			DiffPct:  diffPct(g.price, med.value, med.ok),
		}
		if med.ok {
			entry.MedianPrice = decimalPtrFloat(&med.value)
		}
		own = append(own, entry)
	}
	sort.SliceStable(own, func(i, j int) bool { return own[i].Interest > own[j].Interest })

	terms := make([]string, 0, r.limit())
	for _, e := range city {
		if len(terms) == r.limit() {
			break
		}
		if !e.HasMine {
			terms = append(terms, e.Name)
		}
	}

	return Rankings{
		City:             truncate(city, r.limit()),
		Own:              truncate(own, r.limit()),
		OpportunityTerms: terms,
	}
}

func (r Ranker) limit() int {
	if r.Limit <= 0 {
		return 5
	}
	return r.Limit
}

func truncate[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// groupCityEvents groups by name key in first-seen order. Events without
// a joined product are skipped.
func groupCityEvents(events []*models.ClickEvent, matcher NameMatcher) []*cityGroup {
	index := make(map[string]*cityGroup)
	var groups []*cityGroup

	for _, ev := range events {
		if ev == nil || ev.Product == nil {
			continue
		}
		key := matcher.Key(ev.Product.Name)
		g, ok := index[key]
		if !ok {
			g = &cityGroup{
				name:   ev.Product.Name,
				key:    key,
				stores: make(map[string]struct{}),
				prices: make(map[string]decimal.Decimal),
			}
			index[key] = g
			groups = append(groups, g)
		}
		g.interest++

		storeID := ev.StoreID
		if storeID == "" {
			storeID = ev.Product.StoreID
		}
		g.stores[storeID] = struct{}{}

		if ev.Product.Price != nil {
			g.prices[ev.Product.ID] = *ev.Product.Price
		}
	}
	return groups
}

// groupOwnProducts groups the store catalog by name key in catalog order
// and counts the store's own events per group.
func groupOwnProducts(products []*models.Product, events []*models.ClickEvent, matcher NameMatcher) []*ownGroup {
	index := make(map[string]*ownGroup)
	byProduct := make(map[string]*ownGroup)
	var groups []*ownGroup

	for _, p := range products {
		if p == nil {
			continue
		}
		key := matcher.Key(p.Name)
		g, ok := index[key]
		if !ok {
			g = &ownGroup{name: p.Name, key: key}
			index[key] = g
			groups = append(groups, g)
		}
		if g.price == nil && p.Price != nil {
			g.price = p.Price
		}
		byProduct[p.ID] = g
	}

	for _, ev := range events {
		if ev == nil {
			continue
		}
		if g, ok := byProduct[ev.ProductID]; ok {
			g.interest++
		}
	}
	return groups
}
