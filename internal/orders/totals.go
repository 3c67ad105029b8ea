package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/floorops-backend/internal/tax"
	pkgerrors "github.com/angelmondragon/floorops-backend/pkg/errors"
	"github.com/angelmondragon/floorops-backend/pkg/types"
)

// DefaultTotalsToleranceCents is how far a caller-supplied total may drift
// from the computed one before it is reported.
const DefaultTotalsToleranceCents int64 = 1

// Totals are the server-computed financials of an order, in cents.
type Totals struct {
	SubtotalCents int64
	TaxCents      int64
	TipCents      int64
	TotalCents    int64
	TaxRate       decimal.Decimal
}

// TotalsMismatch records a caller-supplied total that disagreed with Totals.
type TotalsMismatch struct {
	SuppliedCents   int64 `json:"supplied_total_cents"`
	ComputedCents   int64 `json:"computed_total_cents"`
	DifferenceCents int64 `json:"difference_cents"`
}

// ComputeTotals derives subtotal, tax and total. The tax rate can only come from
// a tax.Resolver.
func ComputeTotals(items []types.OrderItem, rate tax.Rate, tipCents int64) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if tipCents < 0 {
		return Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "tip cannot be negative")
	}
	var subtotal int64
	for i, item := range items {
		if item.Quantity <= 0 {
			return Totals{}, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d quantity must be positive", i)
		}
		if item.UnitPriceCents < 0 {
			return Totals{}, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d price cannot be negative", i)
		}
		subtotal += item.LineTotalCents()
	}
	taxCents := rate.TaxOn(subtotal)
	return Totals{
		SubtotalCents: subtotal,
		TaxCents:      taxCents,
		TipCents:      tipCents,
		TotalCents:    subtotal + taxCents + tipCents,
		TaxRate:       rate.Decimal(),
	}, nil
}

// Balanced reports whether total == subtotal + tax + tip.
func (t Totals) Balanced() bool {
	return t.TotalCents == t.SubtotalCents+t.TaxCents+t.TipCents
}

// ReconcileTotal compares a supplied total with the computed one. It returns nil
// when nothing was supplied or the difference is within tolerance. The computed
// value is always the one persisted.
func ReconcileTotal(computed Totals, supplied *int64, toleranceCents int64) *TotalsMismatch {
	if supplied == nil {
		return nil
	}
	diff := *supplied - computed.TotalCents
	abs := diff
	if abs < 0 {
		abs = -abs
	}
	if abs <= toleranceCents {
		return nil
	}
	return &TotalsMismatch{
		SuppliedCents:   *supplied,
		ComputedCents:   computed.TotalCents,
		DifferenceCents: diff,
	}
}
