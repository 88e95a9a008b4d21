package models

import "time"

// Action is the outcome of a moderation analysis.
type Action string

const (
	ActionApproved Action = "approved"
	ActionWarn     Action = "warn"
	ActionFlag     Action = "flag"
	ActionBlock    Action = "block"
)

// Valid reports whether a is one of the known moderation actions.
func (a Action) Valid() bool {
	switch a {
	case ActionApproved, ActionWarn, ActionFlag, ActionBlock:
		return true
	}
	return false
}

// Score dimensions produced by the scorers. Each dimension is computed
// independently; no dimension may be derived from another.
const (
	DimToxicity   = "toxicity"
	DimSpam       = "spam"
	DimHarassment = "harassment"
	DimNSFW       = "nsfw"
	DimViolence   = "violence"
)

// ScoreSet maps a dimension name to a score in [0,1].
type ScoreSet map[string]float64

// Clone returns a copy of the score set so callers can't mutate a Decision
// after it has been logged.
func (s ScoreSet) Clone() ScoreSet {
	out := make(ScoreSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Max returns the highest-scoring dimension and its value. An empty set
// returns ("", 0).
func (s ScoreSet) Max() (string, float64) {
	var dim string
	var best float64
	for k, v := range s {
		if dim == "" || v > best {
			dim, best = k, v
		}
	}
	return dim, best
}

// Decision is the immutable result of one moderation call.
type Decision struct {
	Action           Action   `json:"action"`
	Reason           string   `json:"reason"`
	Scores           ScoreSet `json:"scores"`
	Appealable       bool     `json:"appealable"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
	LogID            string   `json:"log_id"`
	// Note carries a diagnostic annotation, e.g. when scoring failed and
	// the engine failed open.
	Note string `json:"note,omitempty"`
}

// RequestContext is the caller-supplied metadata accompanying a piece of
// content. Country and DeviceType are filled in by the HTTP layer when
// available.
type RequestContext struct {
	UserID      string `json:"user_id"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Country     string `json:"country,omitempty"`
	DeviceType  string `json:"device_type,omitempty"`
}

// LogEntry is the persisted record of a Decision plus its request context.
// Entries are append-only and never mutated.
type LogEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ContentType string    `json:"content_type"`
	ContentID   string    `json:"content_id"`
	Action      Action    `json:"action"`
	Reason      string    `json:"reason"`
	Scores      ScoreSet  `json:"scores"`
	Appealable  bool      `json:"appealable"`
	Country     string    `json:"country,omitempty"`
	DeviceType  string    `json:"device_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Statistics is the admin-facing aggregate over the moderation log and
// appeals register. Daily and Weekly are rolling 24h / 7d windows.
type Statistics struct {
	Total          int64            `json:"total"`
	Daily          int64            `json:"daily"`
	Weekly         int64            `json:"weekly"`
	ByAction       map[Action]int64 `json:"by_action"`
	PendingAppeals int64            `json:"pending_appeals"`
	TotalAppeals   int64            `json:"total_appeals"`
}

// PublicStatistics is the reduced projection exposed to unauthenticated
// callers.
type PublicStatistics struct {
	Daily   int64 `json:"daily"`
	Healthy bool  `json:"healthy"`
}
