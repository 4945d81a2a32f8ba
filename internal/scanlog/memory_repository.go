package scanlog

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewMemoryRepository builds an in-memory scan history store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{entries: make(map[string][]Entry)}
}

func (r *memoryRepository) Append(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.AccountID] = append(r.entries[entry.AccountID], entry)
	return nil
}

func (r *memoryRepository) History(_ context.Context, accountID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > HistoryPageSize {
		limit = HistoryPageSize
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.entries[accountID]
	out := make([]Entry, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}
