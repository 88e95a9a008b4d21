// Package reputation tracks per-user reputation scores and derives the
// trust tier that gates what a user may do on the platform.
package reputation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/store"
)

// Config tunes scoring. Scores start at Start for unseen users and are
// clamped to [Floor, Ceiling] on every update.
type Config struct {
	Start   int
	Floor   int
	Ceiling int
	// Deltas maps an event to its signed score change before severity
	// scaling. Unknown events are rejected.
	Deltas map[models.ReputationEvent]int
}

// DefaultConfig returns the stock reputation tuning.
func DefaultConfig() Config {
	return Config{
		Start:   100,
		Floor:   0,
		Ceiling: 1000,
		Deltas: map[models.ReputationEvent]int{
			models.EventPositiveContribution: 5,
			models.EventContentApproved:      1,
			models.EventViolation:            -20,
			models.EventSpamViolation:        -15,
			models.EventHarassment:           -30,
			models.EventFalseReport:          -10,
			models.EventAppealApproved:       20,
		},
	}
}

// TrustLevelFor maps a reputation score to its trust tier. It is a pure
// step function: non-decreasing in the score.
func TrustLevelFor(score int) models.TrustLevel {
	switch {
	case score < 50:
		return models.TrustRestricted
	case score < 200:
		return models.TrustNew
	case score < 500:
		return models.TrustEstablished
	default:
		return models.TrustTrusted
	}
}

// requiredLevel gates each user action on a minimum trust tier.
var requiredLevel = map[models.UserAction]models.TrustLevel{
	models.UserActionPost:     models.TrustNew,
	models.UserActionComment:  models.TrustNew,
	models.UserActionReport:   models.TrustNew,
	models.UserActionModerate: models.TrustTrusted,
}

// Manager reads and updates reputation through an injected store. All
// mutation goes through Update; everything else is a read-only projection.
type Manager struct {
	store   store.ReputationStore
	cfg     Config
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewManager constructs a Manager. A nil metrics registry defaults to
// no-op.
func NewManager(st store.ReputationStore, cfg Config, logger *zap.Logger, metrics observability.MetricsRegistry) *Manager {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: st, cfg: cfg, logger: logger, metrics: metrics}
}

// Reputation returns the user's current score, or the starting score for
// users with no history.
func (m *Manager) Reputation(ctx context.Context, userID string) (int, error) {
	score, ok, err := m.store.Get(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get reputation for %s: %w", userID, err)
	}
	if !ok {
		return m.cfg.Start, nil
	}
	return score, nil
}

// TrustLevel returns the user's current trust tier.
func (m *Manager) TrustLevel(ctx context.Context, userID string) (models.TrustLevel, error) {
	score, err := m.Reputation(ctx, userID)
	if err != nil {
		return "", err
	}
	return TrustLevelFor(score), nil
}

// Update applies one reputation event scaled by severity. Severity below 1
// is rejected; the usual value is 1. The store guarantees the clamped
// delta is applied atomically, so concurrent updates never lose changes.
func (m *Manager) Update(ctx context.Context, userID string, event models.ReputationEvent, severity int) (models.ReputationChange, error) {
	if userID == "" {
		return models.ReputationChange{}, fmt.Errorf("user id required: %w", models.ErrInvalidArgument)
	}
	if severity < 1 {
		return models.ReputationChange{}, fmt.Errorf("severity must be >= 1, got %d: %w", severity, models.ErrInvalidArgument)
	}
	delta, ok := m.cfg.Deltas[event]
	if !ok {
		return models.ReputationChange{}, fmt.Errorf("unknown reputation event %q: %w", event, models.ErrInvalidArgument)
	}

	prev, cur, err := m.store.Apply(ctx, userID, delta*severity, m.cfg.Start, m.cfg.Floor, m.cfg.Ceiling)
	if err != nil {
		return models.ReputationChange{}, fmt.Errorf("apply reputation event %q for %s: %w", event, userID, err)
	}

	m.metrics.IncrementReputationEvents(string(event))
	m.logger.Debug("reputation updated",
		zap.String("user_id", userID),
		zap.String("event", string(event)),
		zap.Int("previous", prev),
		zap.Int("current", cur))

	return models.ReputationChange{
		UserID:             userID,
		Event:              event,
		PreviousReputation: prev,
		NewReputation:      cur,
		Change:             cur - prev,
		TrustLevel:         TrustLevelFor(cur),
	}, nil
}

// CanPerformAction reports whether the user's trust tier admits the given
// action.
func (m *Manager) CanPerformAction(ctx context.Context, userID string, action models.UserAction) (bool, error) {
	required, ok := requiredLevel[action]
	if !ok {
		return false, fmt.Errorf("unknown user action %q: %w", action, models.ErrInvalidArgument)
	}
	level, err := m.TrustLevel(ctx, userID)
	if err != nil {
		return false, err
	}
	return level.Rank() >= required.Rank(), nil
}
