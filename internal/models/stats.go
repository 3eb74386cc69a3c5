package models

import "time"

// WindowBreakdown aggregates records for one window.
type WindowBreakdown struct {
	AvgIPS float64 `json:"avg_ips"`
	Count  int     `json:"count"`
}

// ActorIPSStats is a recomputable aggregate over an actor's most recent records.
// It carries nothing that cannot be rebuilt from IPSEventRecord rows.
type ActorIPSStats struct {
	ActorID     string                     `json:"actor_id"`
	TotalEvents int                        `json:"total_events"`
	AvgIPS      float64                    `json:"avg_ips"`
	P50         float64                    `json:"p50"`
	P90         float64                    `json:"p90"`
	Verdict     Verdict                    `json:"verdict"`
	Authority   float64                    `json:"authority"`
	ByWindow    map[Window]WindowBreakdown `json:"by_window"`
	ByOutcome   map[Outcome]int            `json:"by_outcome"`
	LastUpdated time.Time                  `json:"last_updated"`
}

// ActorRank is one entry of an asset's top actor list.
type ActorRank struct {
	ActorID string  `json:"actor_id"`
	AvgIPS  float64 `json:"avg_ips"`
	Count   int     `json:"count"`
}

// AssetIPSStats aggregates the most recent records for an asset.
type AssetIPSStats struct {
	Asset       string      `json:"asset"`
	TotalEvents int         `json:"total_events"`
	AvgIPS      float64     `json:"avg_ips"`
	TopActors   []ActorRank `json:"top_actors"`
}

// TimelineFilter selects records for timeline queries. Zero values mean "no constraint".
type TimelineFilter struct {
	ActorID string   `json:"actor_id,omitempty"`
	Asset   string   `json:"asset,omitempty"`
	Window  Window   `json:"window,omitempty"`
	Verdict Verdict  `json:"verdict,omitempty"`
	MinIPS  *float64 `json:"min_ips,omitempty"`
	From    int64    `json:"from,omitempty"` // epoch ms, inclusive
	To      int64    `json:"to,omitempty"`   // epoch ms, inclusive
	Limit   int      `json:"limit,omitempty"`
}

// TimelineStats summarises the IPS distribution of a timeline query.
type TimelineStats struct {
	N      int     `json:"n"`
	AvgIPS float64 `json:"avg_ips"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
}

// WindowStats counts records by window state. Due records were scored while
// their window was open and can now be re-evaluated over the full window.
type WindowStats struct {
	Total  int `json:"total"`
	Closed int `json:"closed"`
	Open   int `json:"open"`
	Due    int `json:"due"`
}
