package scoring

import (
	"testing"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// BenchmarkEvaluate measures one full window evaluation with every context present.
func BenchmarkEvaluate(b *testing.B) {
	in := FactorInput{
		EventType:      models.EventTypeTweet,
		Snapshot:       models.MarketSnapshot{PriceDelta: 3.2, VolumeDelta: 1.4, Volatility: 1.1},
		EventTimestamp: 1_700_000_000_000,
		WindowMs:       models.Window4H.Millis(),
		Reality:        &models.RealityContext{Verdict: models.RealityConfirms, Score: 0.4},
		Historical:     &models.HistoricalContext{EventCount: 12, Accuracy: 0.5},
		Crowd:          &models.CrowdContext{Before: 2, After: 9},
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Evaluate(in, 12)
	}
}

// BenchmarkDescribe measures the distribution summary over a timeline-sized sample.
func BenchmarkDescribe(b *testing.B) {
	values := make([]float64, 500)
	for i := range values {
		values[i] = float64(i%97) / 97
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Describe(values)
	}
}
