package scoring

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/irfndi/celebrum-ips/internal/models"
)

func verdictRank(v models.Verdict) int {
	switch v {
	case models.VerdictNoise:
		return 0
	case models.VerdictMixed:
		return 1
	case models.VerdictInformed:
		return 2
	}
	return -1
}

// TestProperty_ScoreStaysInUnitInterval checks that valid factors never need clamping.
func TestProperty_ScoreStaysInUnitInterval(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("score of factors in [0,1]^5 lies in [0,1]", prop.ForAll(
		func(d, tm, c, i, r float64) bool {
			ips := Score(models.Factors{Direction: d, Time: tm, Consistency: c, Independence: i, Reality: r})
			return ips >= 0 && ips <= 1
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// TestProperty_FactorsAreBounded feeds wide, partly out-of-range context into the calculator.
func TestProperty_FactorsAreBounded(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	inRange := func(v float64) bool { return v >= 0 && v <= 1 }

	properties.Property("every factor lies in [0,1]", prop.ForAll(
		func(priceDelta, volatility, accuracy, realityScore, before, after float64) bool {
			snapshot := models.MarketSnapshot{PriceDelta: priceDelta, Volatility: volatility}
			f := CalculateFactors(FactorInput{
				Outcome:    ClassifyOutcome(snapshot),
				Snapshot:   snapshot,
				Historical: &models.HistoricalContext{EventCount: 10, Accuracy: accuracy},
				Reality:    &models.RealityContext{Verdict: models.RealityConfirms, Score: realityScore},
				Crowd:      &models.CrowdContext{Before: before, After: after},
			})
			return inRange(f.Direction) && inRange(f.Time) && inRange(f.Consistency) &&
				inRange(f.Independence) && inRange(f.Reality)
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(0, 10),
		gen.Float64Range(-1, 2),
		gen.Float64Range(-1, 2),
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 1000),
	))

	properties.TestingRun(t)
}

// TestProperty_VerdictIsMonotonic checks that a higher score never yields a weaker verdict.
func TestProperty_VerdictIsMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("verdict rank is non-decreasing in ips", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return verdictRank(ClassifyVerdict(a, 10)) <= verdictRank(ClassifyVerdict(b, 10))
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.Property("sparse history is always insufficient", prop.ForAll(
		func(ips float64, count int) bool {
			return ClassifyVerdict(ips, count) == models.VerdictInsufficientData
		},
		gen.Float64Range(0, 1),
		gen.IntRange(0, MinEvents-1),
	))

	properties.TestingRun(t)
}

// TestProperty_AuthorityIsBoundedAndMonotonic covers the authority multiplier range.
func TestProperty_AuthorityIsBoundedAndMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("authority lies in [0.6, 1.15] and never decreases", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			lo, hi := AuthorityModifier(a), AuthorityModifier(b)
			return lo >= 0.6 && hi <= 1.15 && lo <= hi
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
