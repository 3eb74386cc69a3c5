package database

import (
	"fmt"

	"github.com/irfndi/celebrum-ips/internal/models"
)

func sampleRecord(eventID string, window models.Window, actor, asset string, ts int64, ips float64) models.IPSEventRecord {
	verdict := models.VerdictMixed
	if ips >= 0.65 {
		verdict = models.VerdictInformed
	} else if ips < 0.35 {
		verdict = models.VerdictNoise
	}
	return models.IPSEventRecord{
		EventID:   eventID,
		Window:    window,
		ActorID:   actor,
		Asset:     asset,
		Timestamp: ts,
		Outcome:   models.OutcomePositiveMove,
		IPS:       ips,
		Verdict:   verdict,
		Factors: models.Factors{
			Direction:    0.85,
			Time:         0.7,
			Consistency:  0.6,
			Independence: 0.6,
			Reality:      0.7,
		},
		Snapshot: models.MarketSnapshot{PriceDelta: 2.4, VolumeDelta: 1.3, Volatility: 0.8},
		Meta: map[string]interface{}{
			"eventType": "tweet",
			"windowMs":  fmt.Sprint(window.Millis()),
		},
	}
}
