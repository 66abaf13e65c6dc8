package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryQuery_Clamped(t *testing.T) {
	tests := []struct {
		name       string
		query      HistoryQuery
		wantLimit  int
		wantOffset int
	}{
		{"zero query gets defaults", HistoryQuery{}, DefaultQueryLimit, 0},
		{"limit within bounds kept", HistoryQuery{Limit: 25, Offset: 5}, 25, 5},
		{"limit above ceiling clamped", HistoryQuery{Limit: 500}, MaxQueryLimit, 0},
		{"negative limit gets default", HistoryQuery{Limit: -1}, DefaultQueryLimit, 0},
		{"negative offset zeroed", HistoryQuery{Limit: 10, Offset: -7}, 10, 0},
		{"limit at ceiling kept", HistoryQuery{Limit: MaxQueryLimit}, MaxQueryLimit, 0},
		{"limit of one kept", HistoryQuery{Limit: 1}, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clamped := tt.query.Clamped()
			assert.Equal(t, tt.wantLimit, clamped.Limit)
			assert.Equal(t, tt.wantOffset, clamped.Offset)
		})
	}
}

func TestHistoryQuery_ClampedPreservesFilters(t *testing.T) {
	clamped := (HistoryQuery{Route: "/pricing", Variant: VariantDraft, Limit: 99}).Clamped()
	assert.Equal(t, "/pricing", clamped.Route)
	assert.Equal(t, VariantDraft, clamped.Variant)
	assert.Equal(t, MaxQueryLimit, clamped.Limit)
}
