package models

// RealityVerdict is the verdict of an external fact-checking source.
type RealityVerdict string

const (
	RealityConfirms    RealityVerdict = "CONFIRMS"
	RealityContradicts RealityVerdict = "CONTRADICTS"
	RealityNoData      RealityVerdict = "NO_DATA"
)

// RealityContext is optional external evidence about whether the statement held up.
type RealityContext struct {
	Verdict RealityVerdict `json:"verdict"`
	Score   float64        `json:"score"`
}

// HistoricalContext summarises an actor's scoring history.
type HistoricalContext struct {
	EventCount int     `json:"event_count"`
	Accuracy   float64 `json:"accuracy"`
}

// CrowdContext counts crowd activity about the asset before and after the event.
type CrowdContext struct {
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}
