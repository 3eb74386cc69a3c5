package scoring

import (
	"github.com/shopspring/decimal"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// Weights of the five factors. They sum to 1.0 and are never renormalised.
var (
	WeightDirection    = decimal.RequireFromString("0.25")
	WeightTime         = decimal.RequireFromString("0.25")
	WeightConsistency  = decimal.RequireFromString("0.20")
	WeightIndependence = decimal.RequireFromString("0.15")
	WeightReality      = decimal.RequireFromString("0.15")
)

// Verdict thresholds. InformedThreshold is inclusive, NoiseThreshold exclusive.
const (
	InformedThreshold = 0.65
	NoiseThreshold    = 0.35
)

// Authority modifier bounds.
const (
	authorityBase  = 0.6
	authoritySlope = 0.4
	authorityCap   = 1.15
)

// Score combines the factors into a single IPS in [0,1], rounded to 3 decimals.
func Score(f models.Factors) float64 {
	sum := decimal.NewFromFloat(f.Direction).Mul(WeightDirection).
		Add(decimal.NewFromFloat(f.Time).Mul(WeightTime)).
		Add(decimal.NewFromFloat(f.Consistency).Mul(WeightConsistency)).
		Add(decimal.NewFromFloat(f.Independence).Mul(WeightIndependence)).
		Add(decimal.NewFromFloat(f.Reality).Mul(WeightReality))

	return Round(Clamp01(sum.InexactFloat64()), 3)
}

// ClassifyVerdict applies the minimum-sample guard rail, then the score thresholds.
func ClassifyVerdict(ips float64, eventCount int) models.Verdict {
	switch {
	case eventCount < MinEvents:
		return models.VerdictInsufficientData
	case ips >= InformedThreshold:
		return models.VerdictInformed
	case ips < NoiseThreshold:
		return models.VerdictNoise
	default:
		return models.VerdictMixed
	}
}

// AuthorityModifier derives the bounded multiplier consumed by external weighting.
// It is monotonically non-decreasing in avgIPS and lies in [0.6, 1.15].
func AuthorityModifier(avgIPS float64) float64 {
	raw := authorityBase + avgIPS*authoritySlope
	return Round(Clamp01(raw/authorityCap)*authorityCap, 2)
}

// Result bundles everything derived from one set of factors.
type Result struct {
	Outcome   models.Outcome
	Factors   models.Factors
	IPS       float64
	Verdict   models.Verdict
	Authority float64
}

// Evaluate runs the classifier, factor calculator and aggregator for one window.
// eventCount feeds the verdict guard rail.
func Evaluate(in FactorInput, eventCount int) Result {
	in.Outcome = ClassifyOutcome(in.Snapshot)
	factors := CalculateFactors(in)
	ips := Score(factors)
	return Result{
		Outcome:   in.Outcome,
		Factors:   factors,
		IPS:       ips,
		Verdict:   ClassifyVerdict(ips, eventCount),
		Authority: AuthorityModifier(ips),
	}
}
