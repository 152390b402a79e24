package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value stored in minor units.
type Money = int64

// BpsDenominator is the basis-point scale used for discount fractions.
const BpsDenominator = 10000

// Line describes a cart or order line used for totals calculation.
type Line struct {
	Qty            int
	UnitPrice      Money
	DiscountedUnit Money
}

// Summary aggregates computed totals over a set of lines.
type Summary struct {
	Gross      Money
	Discounted Money
	Discount   Money
	ItemCount  int
}

// Summarize computes gross and discounted totals over the provided lines.
// Lines with non-positive quantity are skipped.
func Summarize(lines []Line) Summary {
	var s Summary
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		s.Gross += Money(l.Qty) * l.UnitPrice
		s.Discounted += Money(l.Qty) * l.DiscountedUnit
		s.ItemCount += l.Qty
	}
	s.Discount = s.Gross - s.Discounted
	return s
}

// DiscountedPrice applies a basis-point discount to a unit price, rounding
// half-up to the nearest minor unit. Discounts outside (0, 10000) leave the
// price untouched; persisted offers never carry them.
func DiscountedPrice(price Money, discountBps int32) Money {
	if discountBps <= 0 || discountBps >= BpsDenominator || price <= 0 {
		return price
	}
	keep := decimal.NewFromInt(int64(BpsDenominator - discountBps))
	out := decimal.NewFromInt(price).Mul(keep).Div(decimal.NewFromInt(BpsDenominator)).Round(0)
	return out.IntPart()
}
