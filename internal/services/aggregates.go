package services

import (
	"sort"
	"time"

	"github.com/irfndi/celebrum-ips/internal/models"
	"github.com/irfndi/celebrum-ips/internal/scoring"
)

// BuildActorStats aggregates records into actor stats. The result depends only
// on records and now, so rebuilding from the same rows reproduces it exactly.
func BuildActorStats(actorID string, records []models.IPSEventRecord, now time.Time) *models.ActorIPSStats {
	scores := make([]float64, 0, len(records))
	byWindow := make(map[models.Window][]float64)
	byOutcome := make(map[models.Outcome]int)

	for _, rec := range records {
		scores = append(scores, rec.IPS)
		byWindow[rec.Window] = append(byWindow[rec.Window], rec.IPS)
		byOutcome[rec.Outcome]++
	}

	dist := scoring.Describe(scores)

	windows := make(map[models.Window]models.WindowBreakdown, len(byWindow))
	for w, values := range byWindow {
		d := scoring.Describe(values)
		windows[w] = models.WindowBreakdown{AvgIPS: d.Avg, Count: d.N}
	}

	return &models.ActorIPSStats{
		ActorID:     actorID,
		TotalEvents: dist.N,
		AvgIPS:      dist.Avg,
		P50:         dist.P50,
		P90:         dist.P90,
		Verdict:     scoring.ClassifyVerdict(dist.Avg, dist.N),
		Authority:   scoring.AuthorityModifier(dist.Avg),
		ByWindow:    windows,
		ByOutcome:   byOutcome,
		LastUpdated: now.UTC(),
	}
}

// BuildAssetStats aggregates an asset's records and ranks its actors by mean IPS.
// Ties rank the actor with more records first, then by actor id.
func BuildAssetStats(asset string, records []models.IPSEventRecord, topN int) *models.AssetIPSStats {
	scores := make([]float64, 0, len(records))
	perActor := make(map[string][]float64)

	for _, rec := range records {
		scores = append(scores, rec.IPS)
		perActor[rec.ActorID] = append(perActor[rec.ActorID], rec.IPS)
	}

	ranks := make([]models.ActorRank, 0, len(perActor))
	for actorID, values := range perActor {
		d := scoring.Describe(values)
		ranks = append(ranks, models.ActorRank{ActorID: actorID, AvgIPS: d.Avg, Count: d.N})
	}

	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].AvgIPS != ranks[j].AvgIPS {
			return ranks[i].AvgIPS > ranks[j].AvgIPS
		}
		if ranks[i].Count != ranks[j].Count {
			return ranks[i].Count > ranks[j].Count
		}
		return ranks[i].ActorID < ranks[j].ActorID
	})

	if topN > 0 && len(ranks) > topN {
		ranks = ranks[:topN]
	}

	return &models.AssetIPSStats{
		Asset:       asset,
		TotalEvents: len(records),
		AvgIPS:      scoring.Describe(scores).Avg,
		TopActors:   ranks,
	}
}
