package models

import "math"

// MarketSnapshot describes how an asset behaved over one interval.
// Values are rounded to 2 decimal places by the producing provider.
type MarketSnapshot struct {
	PriceDelta  float64  `json:"price_delta"`  // percent change
	VolumeDelta float64  `json:"volume_delta"` // ratio against the preceding interval
	Volatility  float64  `json:"volatility"`
	OnchainFlow *float64 `json:"onchain_flow,omitempty"`
}

// Usable reports whether the snapshot can be scored: price delta and volatility must be finite.
func (s *MarketSnapshot) Usable() bool {
	if s == nil {
		return false
	}
	return isFinite(s.PriceDelta) && isFinite(s.Volatility)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Outcome is the categorical label of market behaviour within a window.
type Outcome string

const (
	OutcomeNoEffect        Outcome = "NO_EFFECT"
	OutcomePositiveMove    Outcome = "POSITIVE_MOVE"
	OutcomeNegativeMove    Outcome = "NEGATIVE_MOVE"
	OutcomeVolatilitySpike Outcome = "VOLATILITY_SPIKE"
)
