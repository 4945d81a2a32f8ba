package quota

import (
	"context"
	"time"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/tier"
)

// Tracker owns per-account monthly scan counters. All mutations go through
// the repository's atomic operations; the tracker itself holds no state.
type Tracker struct {
	repo account.Repository
	now  func() time.Time
}

// NewTracker builds a quota tracker over the account store.
func NewTracker(repo account.Repository) *Tracker {
	return &Tracker{repo: repo, now: time.Now}
}

// NewTrackerAt builds a tracker with a custom clock for tests.
func NewTrackerAt(repo account.Repository, now func() time.Time) *Tracker {
	return &Tracker{repo: repo, now: now}
}

// CanScan reports whether the account has quota left this month. It is a
// plain read; Reserve re-checks atomically before committing.
func (t *Tracker) CanScan(acc account.Account) bool {
	return acc.Tier.ScanLimit().Allows(acc.ScansThisMonth)
}

// Reserve atomically re-checks the tier limit and increments the monthly
// counter, returning the post-increment remaining quota. Failed resolutions
// hand the reservation back via Release.
func (t *Tracker) Reserve(ctx context.Context, acc account.Account) (tier.Remaining, error) {
	limit := acc.Tier.ScanLimit()
	used, err := t.repo.ReserveScan(ctx, acc.ID, limit)
	if err != nil {
		return tier.Remaining{}, err
	}
	return limit.RemainingAfter(used), nil
}

// Release compensates a reservation whose lookup ended in not-found, so
// quota meters successful resolutions rather than attempts.
func (t *Tracker) Release(ctx context.Context, accountID string) error {
	return t.repo.ReleaseScan(ctx, accountID)
}

// Remaining computes the current remaining quota without reserving.
func (t *Tracker) Remaining(acc account.Account) tier.Remaining {
	return acc.Tier.ScanLimit().RemainingAfter(acc.ScansThisMonth)
}

// ResetIfNewPeriod zeroes the counter when the wall-clock month has advanced
// past the account's period start. Callers invoke this at session start;
// mid-month lookups never re-check the boundary. Calling it twice in the
// same month is a no-op.
func (t *Tracker) ResetIfNewPeriod(ctx context.Context, acc account.Account) (account.Account, error) {
	now := t.now().UTC()
	if !acc.ScanPeriodStart.IsZero() && sameMonth(now, acc.ScanPeriodStart.UTC()) {
		return acc, nil
	}
	if err := t.repo.ResetPeriod(ctx, acc.ID, now); err != nil {
		return account.Account{}, err
	}
	acc.ScansThisMonth = 0
	acc.ScanPeriodStart = now
	return acc, nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
