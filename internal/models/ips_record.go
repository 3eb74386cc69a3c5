package models

import "time"

// Verdict classifies an actor's predictive value for one scored event.
type Verdict string

const (
	VerdictInformed         Verdict = "INFORMED"
	VerdictMixed            Verdict = "MIXED"
	VerdictNoise            Verdict = "NOISE"
	VerdictInsufficientData Verdict = "INSUFFICIENT_DATA"
)

// Factors holds the five IPS sub-scores, each in [0,1] and rounded to 3 decimals.
type Factors struct {
	Direction    float64 `json:"direction"`
	Time         float64 `json:"time"`
	Consistency  float64 `json:"consistency"`
	Independence float64 `json:"independence"`
	Reality      float64 `json:"reality"`
}

// IPSEventRecord is the persisted result of scoring one event under one window.
// (EventID, Window) is the natural key.
type IPSEventRecord struct {
	EventID   string                 `json:"event_id" db:"event_id"`
	Window    Window                 `json:"window" db:"time_window"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Asset     string                 `json:"asset" db:"asset"`
	Timestamp int64                  `json:"timestamp" db:"occurred_at"`
	Outcome   Outcome                `json:"outcome" db:"outcome"`
	IPS       float64                `json:"ips" db:"ips"`
	Verdict   Verdict                `json:"verdict" db:"verdict"`
	Factors   Factors                `json:"factors" db:"factors"`
	Snapshot  MarketSnapshot         `json:"snapshot" db:"snapshot"`
	Reality   *RealityContext        `json:"reality,omitempty" db:"reality"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"`
	// WindowClosed is false when the window was still running at scoring time.
	WindowClosed bool      `json:"window_closed" db:"window_closed"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
