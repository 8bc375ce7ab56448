package insights

import (
	"sort"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Median returns the middle price. ok is false for an empty list; the
// median of nothing is undefined, not zero.
func Median(prices []decimal.Decimal) (median decimal.Decimal, ok bool) {
	if len(prices) == 0 {
		return decimal.Zero, false
	}

	sorted := make([]decimal.Decimal, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return sorted[mid-1].Add(sorted[mid]).Div(two), true
	}
	return sorted[mid], true
}

// diffPct is (own-median)/median, nil when either side is unknown or the
// median is zero.
func diffPct(own *decimal.Decimal, median decimal.Decimal, ok bool) *float64 {
	if own == nil || !ok || median.IsZero() {
		return nil
	}
	f := own.Sub(median).Div(median).InexactFloat64()
	return &f
}

func decimalPtrFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
