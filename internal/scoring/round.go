package scoring

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Round rounds v to the given number of decimal places, half away from zero.
// Non-finite input is returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Clamp01 restricts v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Percentile returns the order statistic at index floor(n*q) of an ascending slice.
// It is not interpolated. An empty slice yields 0.
func Percentile(sortedAsc []float64, q float64) float64 {
	n := len(sortedAsc)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(float64(n) * q))
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sortedAsc[idx]
}

// Distribution holds the mean and order statistics used by every aggregate.
type Distribution struct {
	N   int
	Avg float64
	P50 float64
	P90 float64
}

// Describe computes the rounded mean, p50 and p90 of values. The input is not modified.
func Describe(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := decimal.Zero
	for _, v := range sorted {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(sorted)))).Round(3).InexactFloat64()

	return Distribution{
		N:   len(sorted),
		Avg: avg,
		P50: Percentile(sorted, 0.5),
		P90: Percentile(sorted, 0.9),
	}
}
