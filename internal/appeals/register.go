// Package appeals implements the appeal register: users contest prior
// moderation actions, moderators resolve them, and each appeal moves
// through the pending -> approved|rejected state machine exactly once.
package appeals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/store"
)

// Register creates and resolves appeals against moderation log entries.
type Register struct {
	appeals store.AppealStore
	logs    store.LogStore
	logger  *zap.Logger
	metrics observability.MetricsRegistry
	now     func() time.Time
}

// NewRegister constructs a Register over the given stores.
func NewRegister(appeals store.AppealStore, logs store.LogStore, logger *zap.Logger, metrics observability.MetricsRegistry) *Register {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Register{
		appeals: appeals,
		logs:    logs,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Create files an appeal against actionID. The action must reference a
// known, appealable log entry belonging to the appealing user, and each
// log entry admits at most one appeal.
func (r *Register) Create(ctx context.Context, userID, actionID, reason string) (*models.Appeal, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required: %w", models.ErrInvalidArgument)
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("appeal reason required: %w", models.ErrInvalidArgument)
	}

	entry, err := r.logs.Get(ctx, actionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("action %q does not reference a moderation log entry: %w", actionID, models.ErrInvalidArgument)
		}
		return nil, fmt.Errorf("look up action %q: %w", actionID, err)
	}
	if entry.UserID != userID {
		return nil, fmt.Errorf("action %q does not belong to user %q: %w", actionID, userID, models.ErrUnauthorized)
	}
	if !entry.Appealable {
		return nil, fmt.Errorf("decision %q is not appealable: %w", actionID, models.ErrInvalidArgument)
	}

	existing, err := r.appeals.List(ctx, store.AppealFilter{ActionID: actionID})
	if err != nil {
		return nil, fmt.Errorf("check existing appeals for %q: %w", actionID, err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("action %q already has an appeal: %w", actionID, models.ErrInvalidState)
	}

	appeal := models.Appeal{
		ID:        uuid.NewString(),
		UserID:    userID,
		ActionID:  actionID,
		Reason:    strings.TrimSpace(reason),
		Status:    models.AppealPending,
		CreatedAt: r.now().UTC(),
	}
	if err := r.appeals.Insert(ctx, appeal); err != nil {
		return nil, fmt.Errorf("insert appeal: %w", err)
	}

	r.metrics.IncrementAppeals("created")
	r.logger.Info("appeal created",
		zap.String("appeal_id", appeal.ID),
		zap.String("user_id", userID),
		zap.String("action_id", actionID))
	return &appeal, nil
}

// Resolve transitions a pending appeal to approved or rejected. The store
// applies the transition atomically; a second resolution attempt fails
// with ErrInvalidState.
func (r *Register) Resolve(ctx context.Context, appealID string, resolution models.AppealStatus, reviewerID, note string) (*models.Appeal, error) {
	if !resolution.ValidResolution() {
		return nil, fmt.Errorf("resolution must be approved or rejected, got %q: %w", resolution, models.ErrInvalidArgument)
	}
	if reviewerID == "" {
		return nil, fmt.Errorf("reviewer id required: %w", models.ErrInvalidArgument)
	}

	appeal, err := r.appeals.Resolve(ctx, appealID, resolution, reviewerID, note, r.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve appeal %q: %w", appealID, err)
	}

	r.metrics.IncrementAppeals(string(resolution))
	r.logger.Info("appeal resolved",
		zap.String("appeal_id", appealID),
		zap.String("resolution", string(resolution)),
		zap.String("reviewer_id", reviewerID))
	return appeal, nil
}

// Get returns a single appeal by id.
func (r *Register) Get(ctx context.Context, appealID string) (*models.Appeal, error) {
	return r.appeals.Get(ctx, appealID)
}

// List returns appeals matching the filter, ordered by creation time.
func (r *Register) List(ctx context.Context, filter store.AppealFilter) ([]models.Appeal, error) {
	return r.appeals.List(ctx, filter)
}
