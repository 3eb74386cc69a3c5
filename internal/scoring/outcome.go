package scoring

import "github.com/irfndi/celebrum-ips/internal/models"

// Outcome thresholds. Volatility is checked first, so a large swing with high
// volatility is always a spike even when the net price change is directional.
const (
	VolatilitySpikeThreshold = 2.5
	PositiveMoveThreshold    = 1.2
	NegativeMoveThreshold    = -1.2
)

// ClassifyOutcome maps a snapshot to exactly one outcome. First match wins.
func ClassifyOutcome(s models.MarketSnapshot) models.Outcome {
	switch {
	case s.Volatility > VolatilitySpikeThreshold:
		return models.OutcomeVolatilitySpike
	case s.PriceDelta > PositiveMoveThreshold:
		return models.OutcomePositiveMove
	case s.PriceDelta < NegativeMoveThreshold:
		return models.OutcomeNegativeMove
	default:
		return models.OutcomeNoEffect
	}
}
