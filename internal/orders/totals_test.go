package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/floorops-backend/internal/tax"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

func TestComputeTotals(t *testing.T) {
	rate := resolveRate(t, "0.0825")

	totals, err := ComputeTotals([]types.OrderItem{{Quantity: 5, UnitPriceCents: 1200}}, rate, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), totals.SubtotalCents)
	assert.Equal(t, int64(495), totals.TaxCents)
	assert.Equal(t, int64(6495), totals.TotalCents)
	assert.True(t, totals.Balanced())

	totals, err = ComputeTotals([]types.OrderItem{
		{Quantity: 2, UnitPriceCents: 1250},
		{Quantity: 1, UnitPriceCents: 450},
	}, rate, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(2950), totals.SubtotalCents)
	assert.Equal(t, int64(243), totals.TaxCents)
	assert.Equal(t, int64(3493), totals.TotalCents)
	assert.True(t, totals.Balanced())
}

func TestComputeTotalsAlwaysBalances(t *testing.T) {
	rates := []string{"0", "0.05", "0.0725", "0.0825", "0.1", "0.1375"}
	for _, r := range rates {
		rate := resolveRate(t, r)
		for price := int64(0); price < 2500; price += 37 {
			for qty := 1; qty <= 4; qty++ {
				totals, err := ComputeTotals([]types.OrderItem{{Quantity: qty, UnitPriceCents: price}}, rate, price%7)
				require.NoError(t, err)
				assert.True(t, totals.Balanced())
			}
		}
	}
}

func TestComputeTotalsRejectsBadInput(t *testing.T) {
	rate := resolveRate(t, "0.0825")
	cases := map[string]struct {
		items []types.OrderItem
		tip   int64
	}{
		"no items":       {items: nil},
		"zero quantity":  {items: []types.OrderItem{{Quantity: 0, UnitPriceCents: 100}}},
		"negative qty":   {items: []types.OrderItem{{Quantity: -1, UnitPriceCents: 100}}},
		"negative price": {items: []types.OrderItem{{Quantity: 1, UnitPriceCents: -5}}},
		"negative tip":   {items: []types.OrderItem{{Quantity: 1, UnitPriceCents: 100}}, tip: -1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ComputeTotals(tc.items, rate, tc.tip)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestReconcileTotal(t *testing.T) {
	computed := Totals{SubtotalCents: 6000, TaxCents: 495, TotalCents: 6495}

	assert.Nil(t, ReconcileTotal(computed, nil, 1))
	assert.Nil(t, ReconcileTotal(computed, ptr(int64(6495)), 1))
	assert.Nil(t, ReconcileTotal(computed, ptr(int64(6494)), 1))
	assert.Nil(t, ReconcileTotal(computed, ptr(int64(6496)), 1))

	mismatch := ReconcileTotal(computed, ptr(int64(6000)), 1)
	require.NotNil(t, mismatch)
	assert.Equal(t, int64(6000), mismatch.SuppliedCents)
	assert.Equal(t, int64(6495), mismatch.ComputedCents)
	assert.Equal(t, int64(-495), mismatch.DifferenceCents)
}

func ptr[T any](v T) *T {
	return &v
}

type staticRates map[uuid.UUID]decimal.Decimal

func (s staticRates) LoadRate(_ context.Context, restaurantID uuid.UUID) (decimal.Decimal, error) {
	rate, ok := s[restaurantID]
	if !ok {
		return decimal.Zero, tax.ErrNotConfigured
	}
	return rate, nil
}

// resolveRate obtains a Rate the only way production code can: through a Resolver.
func resolveRate(t *testing.T, value string) tax.Rate {
	t.Helper()
	id := uuid.New()
	resolver, err := tax.NewResolver(staticRates{id: decimal.RequireFromString(value)}, tax.Options{})
	require.NoError(t, err)
	rate, err := resolver.RateFor(context.Background(), id)
	require.NoError(t, err)
	return rate
}
