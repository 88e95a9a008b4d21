package analytics

import (
	"context"
	"sync"

	"github.com/wardenhq/warden/internal/models"
)

var _ Service = (*Mock)(nil)

// Mock is an in-memory Service for tests. It records every entry it sees.
type Mock struct {
	mu      sync.Mutex
	Entries []models.LogEntry
	// Err, when set, is returned from RecordDecision.
	Err error
}

// NewMock creates a new mock analytics service.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) RecordDecision(ctx context.Context, entry models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *Mock) Close() error { return nil }

// Recorded returns a snapshot of the recorded entries.
func (m *Mock) Recorded() []models.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.LogEntry, len(m.Entries))
	copy(out, m.Entries)
	return out
}
