package moderation

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/analytics"
	"github.com/wardenhq/warden/internal/appeals"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/observability"
	"github.com/wardenhq/warden/internal/reputation"
	"github.com/wardenhq/warden/internal/store"
)

// Deps bundles the collaborators handed to the Manager.
type Deps struct {
	Logger     *zap.Logger
	Metrics    observability.MetricsRegistry
	Text       TextScorer
	Image      ImageScorer
	Policy     *Policy
	Logs       store.LogStore
	Reputation *reputation.Manager
	Appeals    *appeals.Register
	// Analytics may be nil; decisions are then not streamed.
	Analytics analytics.Service
}

// Manager is the moderation orchestrator: it scores content, applies the
// policy, records the outcome and coordinates reputation and appeals.
// Scorer faults never surface to callers; the engine fails open and
// records the fault instead (see moderate).
type Manager struct {
	logger     *zap.Logger
	metrics    observability.MetricsRegistry
	text       TextScorer
	image      ImageScorer
	policy     *Policy
	logs       store.LogStore
	reputation *reputation.Manager
	appeals    *appeals.Register
	analytics  analytics.Service
	now        func() time.Time

	// consecutive scoring failures; drives the public health flag
	failStreak atomic.Int64
}

// NewManager constructs a Manager from its dependencies.
func NewManager(d Deps) *Manager {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewNoOpRegistry()
	}
	return &Manager{
		logger:     d.Logger,
		metrics:    d.Metrics,
		text:       d.Text,
		image:      d.Image,
		policy:     d.Policy,
		logs:       d.Logs,
		reputation: d.Reputation,
		appeals:    d.Appeals,
		analytics:  d.Analytics,
		now:        time.Now,
	}
}

// ModerateContent scores text content, applies the policy and logs the
// outcome. It always returns a Decision: on internal scorer failure it
// fails open with an approved decision carrying a diagnostic note.
func (m *Manager) ModerateContent(ctx context.Context, content string, rctx models.RequestContext) (models.Decision, error) {
	return m.moderate(ctx, rctx, "text", func() models.ScoreSet {
		return m.text.ScoreText(content)
	})
}

// ModerateImage is ModerateContent for image references.
func (m *Manager) ModerateImage(ctx context.Context, imageURL string, rctx models.RequestContext) (models.Decision, error) {
	return m.moderate(ctx, rctx, "image", func() models.ScoreSet {
		return m.image.ScoreImage(imageURL)
	})
}

func (m *Manager) moderate(ctx context.Context, rctx models.RequestContext, kind string, score func() models.ScoreSet) (models.Decision, error) {
	if rctx.UserID == "" {
		return models.Decision{}, fmt.Errorf("user id required: %w", models.ErrInvalidArgument)
	}
	if rctx.ContentType == "" {
		rctx.ContentType = kind
	}
	start := m.now()

	scores, scoreErr := safeScore(score)

	var (
		action     models.Action
		reason     string
		appealable bool
		note       string
	)
	if scoreErr != nil {
		// Fail open: never block legitimate content on an internal
		// fault. The failure is recorded, not surfaced.
		m.failStreak.Add(1)
		m.metrics.IncrementScoringFailures(rctx.ContentType)
		m.logger.Error("scorer failed, failing open",
			zap.String("content_type", rctx.ContentType),
			zap.String("user_id", rctx.UserID),
			zap.Error(scoreErr))
		scores = models.ScoreSet{}
		action = models.ActionApproved
		reason = "content approved"
		note = "scoring unavailable; approved by fail-open policy"
	} else {
		m.failStreak.Store(0)
		action, reason, appealable = m.policy.Decide(scores)
	}

	entry := models.LogEntry{
		ID:          uuid.NewString(),
		UserID:      rctx.UserID,
		ContentType: rctx.ContentType,
		ContentID:   rctx.ContentID,
		Action:      action,
		Reason:      reason,
		Scores:      scores.Clone(),
		Appealable:  appealable,
		Country:     rctx.Country,
		DeviceType:  rctx.DeviceType,
		CreatedAt:   start.UTC(),
	}
	if err := m.logs.Append(ctx, entry); err != nil {
		// The decision still stands; losing one log entry must not
		// reject or crash the request.
		m.metrics.IncrementPersistErrors()
		m.logger.Error("failed to append moderation log entry",
			zap.String("log_id", entry.ID), zap.Error(err))
	}
	if m.analytics != nil {
		if err := m.analytics.RecordDecision(ctx, entry); err != nil {
			m.logger.Warn("failed to record analytics event",
				zap.String("log_id", entry.ID), zap.Error(err))
		}
	}

	if action == models.ActionBlock {
		m.applyViolation(ctx, rctx.UserID, scores)
	}

	elapsed := m.now().Sub(start)
	m.metrics.IncrementDecisions(rctx.ContentType, string(action))
	m.metrics.RecordModerationLatency(rctx.ContentType, elapsed)

	return models.Decision{
		Action:           action,
		Reason:           reason,
		Scores:           scores,
		Appealable:       appealable,
		ProcessingTimeMs: float64(elapsed.Microseconds()) / 1000.0,
		LogID:            entry.ID,
		Note:             note,
	}, nil
}

// safeScore runs a scorer, converting panics and malformed output into
// errors the caller can recover from.
func safeScore(score func() models.ScoreSet) (scores models.ScoreSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			scores = nil
			err = fmt.Errorf("scorer panic: %v: %w", r, models.ErrScoringFailure)
		}
	}()
	scores = score()
	for dim, v := range scores {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, fmt.Errorf("scorer returned %s=%v outside [0,1]: %w", dim, v, models.ErrScoringFailure)
		}
	}
	return scores, nil
}

// applyViolation debits reputation after a block decision. The event kind
// follows the dominant score dimension.
func (m *Manager) applyViolation(ctx context.Context, userID string, scores models.ScoreSet) {
	event := models.EventViolation
	switch dim, _ := scores.Max(); dim {
	case models.DimSpam:
		event = models.EventSpamViolation
	case models.DimHarassment:
		event = models.EventHarassment
	}
	if _, err := m.reputation.Update(ctx, userID, event, 1); err != nil {
		m.logger.Error("failed to apply reputation penalty",
			zap.String("user_id", userID),
			zap.String("event", string(event)),
			zap.Error(err))
	}
}

// CreateAppeal files an appeal against a prior decision.
func (m *Manager) CreateAppeal(ctx context.Context, userID, actionID, reason string) (*models.Appeal, error) {
	return m.appeals.Create(ctx, userID, actionID, reason)
}

// ResolveAppeal resolves a pending appeal. The reviewer must hold the
// moderate capability; an approved appeal restores reputation to the
// appealing user.
func (m *Manager) ResolveAppeal(ctx context.Context, appealID string, resolution models.AppealStatus, reviewerID, note string) (*models.Appeal, error) {
	allowed, err := m.reputation.CanPerformAction(ctx, reviewerID, models.UserActionModerate)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("reviewer %q lacks moderate capability: %w", reviewerID, models.ErrUnauthorized)
	}

	appeal, err := m.appeals.Resolve(ctx, appealID, resolution, reviewerID, note)
	if err != nil {
		return nil, err
	}

	if resolution == models.AppealApproved {
		if _, err := m.reputation.Update(ctx, appeal.UserID, models.EventAppealApproved, 1); err != nil {
			m.logger.Error("failed to restore reputation after approved appeal",
				zap.String("user_id", appeal.UserID), zap.Error(err))
		}
	}
	return appeal, nil
}

// ListAppeals returns appeals matching the filter.
func (m *Manager) ListAppeals(ctx context.Context, filter store.AppealFilter) ([]models.Appeal, error) {
	return m.appeals.List(ctx, filter)
}

// Statistics aggregates the moderation log and appeals register. Daily
// and weekly are rolling 24h / 7d windows.
func (m *Manager) Statistics(ctx context.Context) (models.Statistics, error) {
	now := m.now()
	total, byAction, err := m.logs.Counts(ctx)
	if err != nil {
		return models.Statistics{}, fmt.Errorf("count decisions: %w", err)
	}
	daily, err := m.logs.CountSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return models.Statistics{}, fmt.Errorf("count daily decisions: %w", err)
	}
	weekly, err := m.logs.CountSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return models.Statistics{}, fmt.Errorf("count weekly decisions: %w", err)
	}
	all, err := m.appeals.List(ctx, store.AppealFilter{})
	if err != nil {
		return models.Statistics{}, fmt.Errorf("list appeals: %w", err)
	}
	var pending int64
	for _, a := range all {
		if a.Status == models.AppealPending {
			pending++
		}
	}
	return models.Statistics{
		Total:          total,
		Daily:          daily,
		Weekly:         weekly,
		ByAction:       byAction,
		PendingAppeals: pending,
		TotalAppeals:   int64(len(all)),
	}, nil
}

// PublicStatistics is the reduced projection of Statistics for
// unauthenticated callers. Healthy reports whether the scorers are
// currently functioning (no active failure streak).
func (m *Manager) PublicStatistics(ctx context.Context) (models.PublicStatistics, error) {
	stats, err := m.Statistics(ctx)
	if err != nil {
		return models.PublicStatistics{}, err
	}
	return models.PublicStatistics{
		Daily:   stats.Daily,
		Healthy: m.failStreak.Load() == 0,
	}, nil
}

// UserHistory returns the user's moderation log entries, newest first.
func (m *Manager) UserHistory(ctx context.Context, userID string, limit int) ([]models.LogEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required: %w", models.ErrInvalidArgument)
	}
	return m.logs.ListByUser(ctx, userID, limit)
}

// CanUserPost reports whether the user's trust level admits posting.
func (m *Manager) CanUserPost(ctx context.Context, userID string) (bool, error) {
	return m.reputation.CanPerformAction(ctx, userID, models.UserActionPost)
}

// CanUserComment reports whether the user's trust level admits commenting.
func (m *Manager) CanUserComment(ctx context.Context, userID string) (bool, error) {
	return m.reputation.CanPerformAction(ctx, userID, models.UserActionComment)
}

// Reputation exposes the reputation manager for read paths.
func (m *Manager) Reputation() *reputation.Manager {
	return m.reputation
}
