// Package capture turns raw social posts into scoreable events.
// Everything here is pure: no I/O, no clock, no randomness.
package capture

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/celebrum-ips/internal/models"
	"github.com/irfndi/celebrum-ips/internal/utils"
)

var (
	dollarPattern = regexp.MustCompile(`\$([A-Za-z]{2,10})\b`)
	hashPattern   = regexp.MustCompile(`#([A-Za-z][A-Za-z0-9]{1,9})\b`)
	pairPattern   = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9]{1,9})/([A-Za-z]{3,4})\b`)
	wordPattern   = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*`)
)

// Reach weights applied to engagement counters.
const (
	repostWeight = 100
	likeWeight   = 10
)

// Extractor resolves assets from free text against a closed ticker vocabulary.
// It is immutable after construction and safe for concurrent use.
type Extractor struct {
	tickers map[string]struct{}
	aliases map[string]string
}

// NewExtractor builds an extractor for the given vocabulary. An empty list uses DefaultTickers.
func NewExtractor(known []string) *Extractor {
	if len(known) == 0 {
		known = DefaultTickers
	}
	e := &Extractor{
		tickers: make(map[string]struct{}, len(known)),
		aliases: make(map[string]string, len(defaultAliases)),
	}
	for _, t := range known {
		if t = NormalizeAsset(t); t != "" {
			e.tickers[t] = struct{}{}
		}
	}
	for name, ticker := range defaultAliases {
		if _, ok := e.tickers[ticker]; ok {
			e.aliases[name] = ticker
		}
	}
	return e
}

var defaultExtractor = NewExtractor(nil)

// Capture extracts an event using the default vocabulary. See Extractor.Capture.
func Capture(post models.RawPost) *models.Event {
	return defaultExtractor.Capture(post)
}

// NormalizeAsset trims and upper-cases a ticker.
func NormalizeAsset(asset string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(asset))
}

// ExtractAsset returns the first asset found in text. The $TICKER convention wins,
// then #TICKER and BASE/QUOTE pairs of known tickers, then bare known tickers
// and project names.
func (e *Extractor) ExtractAsset(text string) (string, bool) {
	if m := dollarPattern.FindStringSubmatch(text); m != nil {
		return NormalizeAsset(m[1]), true
	}

	if m := hashPattern.FindAllStringSubmatch(text, -1); m != nil {
		for _, sub := range m {
			if t := NormalizeAsset(sub[1]); e.known(t) {
				return t, true
			}
		}
	}

	for _, sub := range pairPattern.FindAllStringSubmatch(text, -1) {
		base, quote := NormalizeAsset(sub[1]), NormalizeAsset(sub[2])
		if _, ok := quoteCurrencies[quote]; ok && e.known(base) {
			return base, true
		}
	}

	for _, word := range wordPattern.FindAllString(text, -1) {
		if word == strings.ToUpper(word) && e.known(word) {
			return word, true
		}
		if ticker, ok := e.aliases[strings.ToLower(word)]; ok {
			return ticker, true
		}
	}

	return "", false
}

func (e *Extractor) known(ticker string) bool {
	_, ok := e.tickers[ticker]
	return ok
}

// Extract validates post and builds its event in a single pass. A non-nil
// error is a utils.ValidationError naming why the post is filtered.
func (e *Extractor) Extract(post models.RawPost) (*models.Event, error) {
	actorID := strings.TrimSpace(post.ActorID)
	if actorID == "" {
		return nil, utils.NewValidationError("actor_id", "is required")
	}
	if post.Timestamp <= 0 {
		return nil, utils.NewValidationErrorf("timestamp", "must be positive epoch milliseconds, got %d", post.Timestamp)
	}
	eventType := eventTypeOf(post)
	if !eventType.IsValid() {
		return nil, utils.NewValidationErrorf("event_type", "unknown event type %q", post.EventType)
	}
	asset, ok := e.ExtractAsset(post.Text)
	if !ok {
		return nil, utils.NewValidationError("text", "no resolvable asset")
	}

	hash := ContentHash(post.Text)
	id := strings.TrimSpace(post.ID)
	if id == "" {
		id = eventID(actorID, post.Timestamp, hash)
	}

	return &models.Event{
		ID:          id,
		ActorID:     actorID,
		EventType:   eventType,
		Asset:       asset,
		ProjectID:   post.ProjectID,
		Timestamp:   post.Timestamp,
		ContentHash: hash,
		Reach:       Reach(post.Engagement),
	}, nil
}

// Validate explains why a post would be filtered. A nil result means Capture
// will produce an event.
func (e *Extractor) Validate(post models.RawPost) error {
	_, err := e.Extract(post)
	return err
}

// Capture returns the event described by post, or nil when the post is filtered
// (no actor, no resolvable asset, or otherwise invalid). Filtering is not an error.
func (e *Extractor) Capture(post models.RawPost) *models.Event {
	event, _ := e.Extract(post)
	return event
}

// Reach estimates popularity from engagement counters; 0 without engagement data.
func Reach(e *models.Engagement) int64 {
	if e == nil {
		return 0
	}
	return e.Impressions + e.Reposts*repostWeight + e.Likes*likeWeight
}

// ContentHash is a 32-bit rolling hash of the post text, as 8 hex characters.
// It is kept for future deduplication and is not a uniqueness constraint.
func ContentHash(text string) string {
	var h int32
	for _, r := range text {
		h = h*31 + int32(r)
	}
	return fmt.Sprintf("%08x", uint32(h))
}

func eventTypeOf(post models.RawPost) models.EventType {
	if post.EventType == "" {
		return models.EventTypeTweet
	}
	return models.EventType(strings.ToLower(string(post.EventType)))
}

func eventID(actorID string, timestamp int64, hash string) string {
	name := fmt.Sprintf("ips:%s:%d:%s", actorID, timestamp, hash)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
