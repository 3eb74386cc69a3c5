package models

// EventType is the kind of social post an event was captured from.
type EventType string

const (
	EventTypeTweet  EventType = "tweet"
	EventTypeReply  EventType = "reply"
	EventTypeQuote  EventType = "quote"
	EventTypeThread EventType = "thread"
)

// IsValid reports whether t is one of the known event types.
func (t EventType) IsValid() bool {
	switch t {
	case EventTypeTweet, EventTypeReply, EventTypeQuote, EventTypeThread:
		return true
	}
	return false
}

// Engagement holds the raw popularity counters attached to a post.
type Engagement struct {
	Impressions int64 `json:"impressions"`
	Reposts     int64 `json:"reposts"`
	Likes       int64 `json:"likes"`
}

// RawPost is the validated input accepted at the capture boundary.
type RawPost struct {
	ID         string      `json:"id,omitempty"`
	ActorID    string      `json:"actor_id"`
	Text       string      `json:"text"`
	EventType  EventType   `json:"event_type,omitempty"`
	Timestamp  int64       `json:"timestamp"` // epoch ms
	ProjectID  string      `json:"project_id,omitempty"`
	Engagement *Engagement `json:"engagement,omitempty"`
}

// Event is a captured observation. Immutable once captured.
type Event struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	EventType   EventType `json:"event_type"`
	Asset       string    `json:"asset"`
	ProjectID   string    `json:"project_id,omitempty"`
	Timestamp   int64     `json:"timestamp"`
	ContentHash string    `json:"content_hash"`
	Reach       int64     `json:"reach"`
}
