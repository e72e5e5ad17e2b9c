package domain

import "github.com/shopspring/decimal"

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "estandar"
	ShippingExpress  ShippingMethod = "express"
)

func (m ShippingMethod) IsValid() bool {
	return m == ShippingStandard || m == ShippingExpress
}

var (
	shippingStandardCost = decimal.NewFromInt(15)
	shippingExpressCost  = decimal.NewFromInt(25)

	// Orders at or above this subtotal ship free.
	freeShippingThreshold = decimal.NewFromInt(200)

	taxRate = decimal.NewFromFloat(0.18)
)

// ShippingCost returns the flat shipping fee for the method, waived for
// subtotals at or above the free-shipping threshold.
func ShippingCost(method ShippingMethod, subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		return decimal.Zero
	}
	if method == ShippingExpress {
		return shippingExpressCost
	}
	return shippingStandardCost
}

// Tax is 18% of goods plus shipping.
func Tax(subtotal, shippingCost decimal.Decimal) decimal.Decimal {
	return subtotal.Add(shippingCost).Mul(taxRate)
}

// ComputeTotals fills the order's money fields from its line items.
// Totals are computed exactly once, at creation; they are never
// recomputed from current catalog data.
func (o *Order) ComputeTotals() {
	subtotal := decimal.Zero
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(o.Items[i].Quantity)))
		subtotal = subtotal.Add(o.Items[i].Subtotal)
	}
	o.Subtotal = subtotal
	o.ShippingCost = ShippingCost(o.ShippingMethod, subtotal)
	o.Tax = Tax(subtotal, o.ShippingCost)
	o.Total = subtotal.Add(o.ShippingCost).Add(o.Tax).Sub(o.Discount)
}
