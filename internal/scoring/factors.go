package scoring

import (
	"math"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// MinEvents is the guard rail below which history is considered too sparse.
const MinEvents = 3

// Neutral factor values used when context is missing.
const (
	neutralScore         = 0.5
	neutralIndependence  = 0.6
	followerIndependence = 0.3
	leaderIndependence   = 0.9
	contradictedReality  = 0.2
	confirmedRealityBase = 0.8
)

var directionScores = map[models.Outcome]float64{
	models.OutcomeNoEffect:        0.5,
	models.OutcomePositiveMove:    0.8,
	models.OutcomeNegativeMove:    0.3,
	models.OutcomeVolatilitySpike: 0.6,
}

// FactorInput carries everything the factor calculator needs.
// Reality, Historical and Crowd are optional.
type FactorInput struct {
	EventType      models.EventType
	Outcome        models.Outcome
	Snapshot       models.MarketSnapshot
	EventTimestamp int64
	WindowMs       int64
	Reality        *models.RealityContext
	Historical     *models.HistoricalContext
	Crowd          *models.CrowdContext
}

// CalculateFactors computes the five sub-scores. Every value is clamped to [0,1]
// and rounded to 3 decimals here; persisted records store these rounded values.
func CalculateFactors(in FactorInput) models.Factors {
	return models.Factors{
		Direction:    finish(DirectionFactor(in.Outcome, in.EventType)),
		Time:         finish(TimeFactor(in.Snapshot.PriceDelta)),
		Consistency:  finish(ConsistencyFactor(in.Historical)),
		Independence: finish(IndependenceFactor(in.Crowd)),
		Reality:      finish(RealityFactor(in.Reality)),
	}
}

func finish(v float64) float64 {
	return Round(Clamp01(v), 3)
}

// DirectionFactor is a fixed lookup by outcome. The event type is accepted
// but not weighted yet.
func DirectionFactor(outcome models.Outcome, _ models.EventType) float64 {
	if v, ok := directionScores[outcome]; ok {
		return v
	}
	return neutralScore
}

// TimeFactor rewards earlier signals more for larger moves.
func TimeFactor(priceDelta float64) float64 {
	abs := math.Abs(priceDelta)
	if abs < 0.5 {
		return neutralScore
	}
	return math.Min(1, neutralScore+abs/10)
}

// ConsistencyFactor is neutral below the guard rail, otherwise the historical accuracy.
func ConsistencyFactor(h *models.HistoricalContext) float64 {
	if h == nil || h.EventCount < MinEvents {
		return neutralScore
	}
	return h.Accuracy
}

// IndependenceFactor scores whether the actor led or followed the crowd.
// Missing crowd data behaves like zero activity on both sides.
func IndependenceFactor(c *models.CrowdContext) float64 {
	var before, after float64
	if c != nil {
		before, after = c.Before, c.After
	}
	switch {
	case before > after:
		return followerIndependence
	case after > before*2:
		return leaderIndependence
	default:
		return neutralIndependence
	}
}

// RealityFactor folds an external reality verdict into the score.
func RealityFactor(r *models.RealityContext) float64 {
	if r == nil {
		return neutralScore
	}
	switch r.Verdict {
	case models.RealityContradicts:
		return contradictedReality
	case models.RealityConfirms:
		return confirmedRealityBase + r.Score*0.2
	default:
		return neutralScore
	}
}
