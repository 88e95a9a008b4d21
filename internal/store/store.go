// Package store defines the persistence contracts for the moderation
// engine and provides in-memory, Redis and Postgres implementations.
//
// The engine never touches a backend directly; the orchestrator receives
// these interfaces so persistence can be swapped without changing the
// decision path.
package store

import (
	"context"
	"time"

	"github.com/wardenhq/warden/internal/models"
)

// LogStore persists moderation log entries. Entries are append-only.
type LogStore interface {
	// Append records a new log entry. The entry ID must be unique.
	Append(ctx context.Context, entry models.LogEntry) error
	// Get returns the entry with the given id, or models.ErrNotFound.
	Get(ctx context.Context, id string) (*models.LogEntry, error)
	// ListByUser returns up to limit entries for a user, newest first.
	// limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]models.LogEntry, error)
	// CountSince returns the number of entries created at or after the
	// given instant.
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// Counts returns the total entry count and a per-action breakdown.
	Counts(ctx context.Context) (int64, map[models.Action]int64, error)
}

// AppealFilter narrows an appeal listing. Zero values match everything.
type AppealFilter struct {
	Status   models.AppealStatus
	UserID   string
	ActionID string
}

// AppealStore persists appeals and enforces the pending -> terminal
// transition atomically.
type AppealStore interface {
	// Insert stores a new appeal. The appeal ID must be unique.
	Insert(ctx context.Context, appeal models.Appeal) error
	// Get returns the appeal with the given id, or models.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Appeal, error)
	// List returns appeals matching the filter, ordered by creation time.
	List(ctx context.Context, filter AppealFilter) ([]models.Appeal, error)
	// Resolve transitions a pending appeal to the given terminal status.
	// It returns models.ErrNotFound for an unknown id and
	// models.ErrInvalidState if the appeal is no longer pending. The
	// check-and-set must be atomic with respect to concurrent Resolve
	// calls on the same appeal.
	Resolve(ctx context.Context, id string, status models.AppealStatus, reviewerID, note string, at time.Time) (*models.Appeal, error)
}

// ReputationStore persists per-user reputation scores.
type ReputationStore interface {
	// Get returns the stored score and whether the user has one. Users
	// without a score are created lazily by Apply.
	Get(ctx context.Context, userID string) (int, bool, error)
	// Apply atomically adds delta to the user's score (starting from
	// start when unseen) and clamps the result to [floor, ceiling].
	// Concurrent Apply calls for the same user must not lose deltas.
	Apply(ctx context.Context, userID string, delta, start, floor, ceiling int) (previous, current int, err error)
}

// Stores bundles the three backends handed to the orchestrator.
type Stores struct {
	Logs       LogStore
	Appeals    AppealStore
	Reputation ReputationStore
}
