package insights

import (
	"testing"
	"time"

	"github.com/radiusdt/storefront-insights/internal/models"
	"github.com/stretchr/testify/assert"
)

func clicks(types ...models.ClickType) []*models.ClickEvent {
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	events := make([]*models.ClickEvent, len(types))
	for i, ct := range types {
		events[i] = &models.ClickEvent{ID: string(rune('a' + i)), ClickType: ct, OccurredAt: base.Add(time.Duration(i) * time.Minute)}
	}
	return events
}

func TestDelta(t *testing.T) {
	tests := []struct {
		name      string
		cur, prev float64
		want      float64
	}{
		{"growth from zero", 5, 0, 1},
		{"halved", 5, 10, -0.5},
		{"nothing at all", 0, 0, 0},
		{"dropped to zero", 0, 4, -1},
		{"unchanged", 3, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Delta(tt.cur, tt.prev), 1e-9)
		})
	}
}

func TestComputeKPIs(t *testing.T) {
	current := clicks(models.ClickContact, models.ClickContact, models.ClickMapRoute, models.ClickOther)
	previous := clicks(models.ClickContact, models.ClickOther, models.ClickOther)

	k := ComputeKPIs(current, previous)

	assert.Equal(t, 2, k.ContactClicks)
	assert.Equal(t, 1, k.MapClicks)
	assert.Equal(t, 4, k.Impressions)
	assert.InDelta(t, 0.75, k.CTR, 1e-9)

	assert.InDelta(t, 1.0, k.Deltas.ContactClicks, 1e-9)
	assert.InDelta(t, 1.0, k.Deltas.MapClicks, 1e-9)
	assert.InDelta(t, 1.0/3.0, k.Deltas.Impressions, 1e-9)
	assert.InDelta(t, 1.25, k.Deltas.CTR, 1e-9)
}

func TestComputeKPIsWithoutEvents(t *testing.T) {
	k := ComputeKPIs(nil, nil)
	assert.Equal(t, KPIs{}, k)
}

func TestCTRBounds(t *testing.T) {
	sets := [][]*models.ClickEvent{
		nil,
		clicks(models.ClickOther, models.ClickOther),
		clicks(models.ClickContact, models.ClickMapRoute),
		clicks(models.ClickContact, models.ClickOther, models.ClickOther),
	}
	for _, events := range sets {
		k := ComputeKPIs(events, nil)
		assert.GreaterOrEqual(t, k.CTR, 0.0)
		assert.LessOrEqual(t, k.CTR, 1.0)
		if k.Impressions == 0 {
			assert.Zero(t, k.CTR)
		}
	}
}
