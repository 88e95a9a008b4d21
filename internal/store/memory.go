package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/models"
)

// NewMemory returns a Stores bundle backed entirely by process memory.
// It is the default backend for tests and single-node development.
func NewMemory() Stores {
	return Stores{
		Logs:       NewMemoryLogs(),
		Appeals:    NewMemoryAppeals(),
		Reputation: NewMemoryReputation(),
	}
}

// MemoryLogs is a mutex-guarded, append-only log store.
type MemoryLogs struct {
	mu    sync.RWMutex
	logs  map[string]models.LogEntry
	order []string
}

var _ LogStore = (*MemoryLogs)(nil)

func NewMemoryLogs() *MemoryLogs {
	return &MemoryLogs{logs: make(map[string]models.LogEntry)}
}

func (m *MemoryLogs) Append(ctx context.Context, entry models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Scores = entry.Scores.Clone()
	m.logs[entry.ID] = entry
	m.order = append(m.order, entry.ID)
	return nil
}

func (m *MemoryLogs) Get(ctx context.Context, id string) (*models.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.logs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	e.Scores = e.Scores.Clone()
	return &e, nil
}

func (m *MemoryLogs) ListByUser(ctx context.Context, userID string, limit int) ([]models.LogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.LogEntry
	// order is append order; walk backwards for newest first.
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.logs[m.order[i]]
		if e.UserID != userID {
			continue
		}
		e.Scores = e.Scores.Clone()
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryLogs) CountSince(ctx context.Context, since time.Time) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, e := range m.logs {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryLogs) Counts(ctx context.Context) (int64, map[models.Action]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byAction := make(map[models.Action]int64)
	for _, e := range m.logs {
		byAction[e.Action]++
	}
	return int64(len(m.logs)), byAction, nil
}

// MemoryAppeals is a mutex-guarded appeal store. Resolve performs the
// pending check and the status write under one lock acquisition.
type MemoryAppeals struct {
	mu      sync.RWMutex
	appeals map[string]models.Appeal
	order   []string
}

var _ AppealStore = (*MemoryAppeals)(nil)

func NewMemoryAppeals() *MemoryAppeals {
	return &MemoryAppeals{appeals: make(map[string]models.Appeal)}
}

func (m *MemoryAppeals) Insert(ctx context.Context, appeal models.Appeal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appeals[appeal.ID] = appeal
	m.order = append(m.order, appeal.ID)
	return nil
}

func (m *MemoryAppeals) Get(ctx context.Context, id string) (*models.Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.appeals[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &a, nil
}

func (m *MemoryAppeals) List(ctx context.Context, filter AppealFilter) ([]models.Appeal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Appeal, 0, len(m.order))
	for _, id := range m.order {
		a := m.appeals[id]
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.ActionID != "" && a.ActionID != filter.ActionID {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryAppeals) Resolve(ctx context.Context, id string, status models.AppealStatus, reviewerID, note string, at time.Time) (*models.Appeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appeals[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if a.Status != models.AppealPending {
		return nil, models.ErrInvalidState
	}
	a.Status = status
	a.ReviewerID = reviewerID
	a.ReviewNote = note
	resolved := at
	a.ResolvedAt = &resolved
	m.appeals[id] = a
	return &a, nil
}

// MemoryReputation is a mutex-guarded reputation score store.
type MemoryReputation struct {
	mu     sync.Mutex
	scores map[string]int
}

var _ ReputationStore = (*MemoryReputation)(nil)

func NewMemoryReputation() *MemoryReputation {
	return &MemoryReputation{scores: make(map[string]int)}
}

func (m *MemoryReputation) Get(ctx context.Context, userID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.scores[userID]
	return v, ok, nil
}

func (m *MemoryReputation) Apply(ctx context.Context, userID string, delta, start, floor, ceiling int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.scores[userID]
	if !ok {
		prev = start
	}
	cur := prev + delta
	if cur < floor {
		cur = floor
	}
	if cur > ceiling {
		cur = ceiling
	}
	m.scores[userID] = cur
	return prev, cur, nil
}
