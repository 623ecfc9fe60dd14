package order

import "github.com/shopspring/decimal"

// Pricing holds the tax and shipping policy applied at checkout. The values
// are store-wide constants, not per-order inputs.
type Pricing struct {
	// TaxRate is the flat sales tax rate applied to the subtotal.
	TaxRate decimal.Decimal
	// FreeShippingOver is the subtotal at or above which shipping is free.
	FreeShippingOver decimal.Decimal
	// FlatShipping is the shipping cost charged below the threshold.
	FlatShipping decimal.Decimal
}

// DefaultPricing returns the store policy: 8% tax, free shipping at 100,
// flat 10 below it.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:          decimal.NewFromFloat(0.08),
		FreeShippingOver: decimal.NewFromInt(100),
		FlatShipping:     decimal.NewFromInt(10),
	}
}

// Tax returns the tax amount for the given subtotal, rounded to 2 places.
func (p Pricing) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.TaxRate).Round(2)
}

// Shipping returns the shipping cost for the given subtotal.
func (p Pricing) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeShippingOver) {
		return decimal.Zero
	}
	return p.FlatShipping
}
