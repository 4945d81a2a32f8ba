package account

import (
	"context"
	"sync"
	"time"

	"github.com/tulip-app/tulip/internal/tier"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byEmail  map[string]string
}

// NewMemoryRepository builds an in-memory account store for testing and
// development. All conditional updates run under a single lock so the
// reserve/append semantics match the Postgres implementation.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		accounts: make(map[string]Account),
		byEmail:  make(map[string]string),
	}
}

func (r *memoryRepository) Create(_ context.Context, acc Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[acc.Email]; exists {
		return ErrEmailTaken
	}
	r.accounts[acc.ID] = acc
	r.byEmail[acc.Email] = acc.ID
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return Account{}, ErrNotFound
	}
	return cloneAccount(r.accounts[id]), nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return cloneAccount(acc), nil
}

func (r *memoryRepository) ReserveScan(_ context.Context, id string, limit tier.Limit) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return 0, ErrNotFound
	}
	if !limit.Allows(acc.ScansThisMonth) {
		return 0, ErrQuotaExceeded
	}
	acc.ScansThisMonth++
	r.accounts[id] = acc
	return acc.ScansThisMonth, nil
}

func (r *memoryRepository) ReleaseScan(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	if acc.ScansThisMonth > 0 {
		acc.ScansThisMonth--
	}
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) ResetPeriod(_ context.Context, id string, start time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.ScansThisMonth = 0
	acc.ScanPeriodStart = start
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) UpdateTier(_ context.Context, id string, t tier.Tier, subStart, subEnd time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	acc.Tier = t
	acc.SubscriptionStart = subStart
	acc.SubscriptionEnd = subEnd
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) AppendSaved(_ context.Context, id, productID string, capacity tier.Limit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	for _, saved := range acc.SavedProducts {
		if saved == productID {
			return ErrAlreadySaved
		}
	}
	if !capacity.Allows(len(acc.SavedProducts)) {
		return ErrCapacityExceeded
	}
	acc.SavedProducts = append(acc.SavedProducts, productID)
	r.accounts[id] = acc
	return nil
}

func (r *memoryRepository) RemoveSaved(_ context.Context, id, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	kept := acc.SavedProducts[:0]
	for _, saved := range acc.SavedProducts {
		if saved != productID {
			kept = append(kept, saved)
		}
	}
	acc.SavedProducts = kept
	r.accounts[id] = acc
	return nil
}

func cloneAccount(acc Account) Account {
	out := acc
	out.SavedProducts = append([]string(nil), acc.SavedProducts...)
	out.PasswordHash = append([]byte(nil), acc.PasswordHash...)
	return out
}
