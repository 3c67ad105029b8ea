// Package tax is the single source of tenant tax rates for the order core.
//
// Rate values can only be produced by this package, so any code computing tax
// has to go through a Resolver.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	zero = decimal.Zero
	one  = decimal.NewFromInt(1)
)

// Rate is a resolved tenant tax rate, e.g. 0.0825 for 8.25%.
type Rate struct {
	value decimal.Decimal
}

func newRate(value decimal.Decimal) (Rate, error) {
	if value.LessThan(zero) || value.GreaterThanOrEqual(one) {
		return Rate{}, fmt.Errorf("tax rate %s out of range [0, 1)", value.String())
	}
	return Rate{value: value}, nil
}

// TaxOn returns the tax due on subtotalCents, rounded half away from zero to the cent.
func (r Rate) TaxOn(subtotalCents int64) int64 {
	return decimal.NewFromInt(subtotalCents).Mul(r.value).Round(0).IntPart()
}

// Decimal exposes the rate for persistence as an order snapshot.
func (r Rate) Decimal() decimal.Decimal {
	return r.value
}

func (r Rate) String() string {
	return r.value.String()
}
