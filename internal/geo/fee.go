package geo

import (
	"github.com/shopspring/decimal"

	"github.com/souq-labs/backend-souq/internal/pricing"
)

// DeliveryConfig carries the per-store delivery fee settings.
type DeliveryConfig struct {
	Enabled    bool
	RatioPerKM pricing.Money
	Origin     *Point
}

// DeliveryFee computes the delivery fee in minor units for shipping from the
// store origin to the destination. Fees disabled or a missing endpoint on
// either side degrade to zero, never an error. The result is
// round(distance_km * ratio) half-up at the minor unit, i.e. two decimal
// places in currency terms.
func DeliveryFee(cfg DeliveryConfig, dest *Point) pricing.Money {
	if !cfg.Enabled || cfg.RatioPerKM <= 0 || cfg.Origin == nil || dest == nil {
		return 0
	}
	distance := Haversine(*cfg.Origin, *dest)
	if distance == 0 {
		return 0
	}
	fee := decimal.NewFromFloat(distance).Mul(decimal.NewFromInt(cfg.RatioPerKM)).Round(0)
	if fee.IsNegative() {
		return 0
	}
	return fee.IntPart()
}
