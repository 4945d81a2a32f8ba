package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/catalog"
	"github.com/tulip-app/tulip/internal/logging"
	"github.com/tulip-app/tulip/internal/product"
	"github.com/tulip-app/tulip/internal/quota"
	"github.com/tulip-app/tulip/internal/scanlog"
	"github.com/tulip-app/tulip/internal/tier"
)

type fixture struct {
	accounts account.Repository
	products product.Repository
	history  *scanlog.Service
	svc      *Service
}

type failingResolver struct{}

func (failingResolver) Lookup(context.Context, string) (product.Product, error) {
	return product.Product{}, catalog.ErrUnavailable
}

func newFixture(t *testing.T, resolver catalog.Resolver) *fixture {
	t.Helper()
	accounts := account.NewMemoryRepository()
	products := product.NewMemoryRepository()
	logger := logging.Discard()
	history := scanlog.NewService(scanlog.NewMemoryRepository(), products, logger)
	tracker := quota.NewTracker(accounts)
	return &fixture{
		accounts: accounts,
		products: products,
		history:  history,
		svc:      NewService(accounts, tracker, products, resolver, history, logger),
	}
}

func (f *fixture) seedAccount(t *testing.T, accTier tier.Tier, scans int) account.Account {
	t.Helper()
	acc := account.Account{
		ID:              uuid.New().String(),
		Email:           uuid.New().String() + "@example.com",
		Tier:            accTier,
		ScansThisMonth:  scans,
		ScanPeriodStart: time.Now().UTC(),
	}
	if err := f.accounts.Create(context.Background(), acc); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return acc
}

func (f *fixture) counter(t *testing.T, id string) int {
	t.Helper()
	acc, err := f.accounts.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find account: %v", err)
	}
	return acc.ScansThisMonth
}

func TestResolveLocalHit(t *testing.T) {
	f := newFixture(t, catalog.StaticResolver{})
	ctx := context.Background()
	acc := f.seedAccount(t, tier.Free, 0)

	if _, err := f.products.Upsert(ctx, product.Product{Barcode: "012000161551", Name: "Pepsi"}); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := f.products.RecordObservation(ctx, "012000161551", 3, nil); err != nil {
		t.Fatalf("seed scan count: %v", err)
	}

	res, err := f.svc.Resolve(ctx, acc.ID, "012000161551")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Product.ScanCount != 4 {
		t.Fatalf("product scan count = %d, want 4", res.Product.ScanCount)
	}
	if res.ScansRemaining.Unbounded || res.ScansRemaining.Count != 4 {
		t.Fatalf("remaining = %+v, want 4", res.ScansRemaining)
	}
	if got := f.counter(t, acc.ID); got != 1 {
		t.Fatalf("account counter = %d, want 1", got)
	}

	history, err := f.history.History(ctx, acc.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Barcode != "012000161551" {
		t.Fatalf("expected one history entry for the scan, got %+v", history)
	}
}

func TestResolveQuotaExceeded(t *testing.T) {
	f := newFixture(t, catalog.StaticResolver{})
	ctx := context.Background()
	acc := f.seedAccount(t, tier.Free, 5)

	if _, err := f.products.Upsert(ctx, product.Product{Barcode: "b", Name: "Thing"}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	_, err := f.svc.Resolve(ctx, acc.ID, "b")
	if !errors.Is(err, account.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if got := f.counter(t, acc.ID); got != 5 {
		t.Fatalf("counter changed on rejected scan: %d", got)
	}
	p, _ := f.products.FindByBarcode(ctx, "b")
	if p.ScanCount != 0 {
		t.Fatalf("product counter bumped on rejected scan: %d", p.ScanCount)
	}
}

func TestResolveRemoteHitPersists(t *testing.T) {
	resolver := catalog.StaticResolver{Products: map[string]product.Product{
		"777": {Barcode: "777", Name: "Remote Cookie", Brand: "Crumb Co"},
	}}
	f := newFixture(t, resolver)
	ctx := context.Background()
	acc := f.seedAccount(t, tier.Basic, 0)

	res, err := f.svc.Resolve(ctx, acc.ID, "777")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Product.Name != "Remote Cookie" || res.Product.ScanCount != 1 {
		t.Fatalf("unexpected result: %+v", res.Product)
	}
	if res.ScansRemaining.Count != 99 {
		t.Fatalf("remaining = %+v, want 99", res.ScansRemaining)
	}

	stored, err := f.products.FindByBarcode(ctx, "777")
	if err != nil {
		t.Fatalf("resolved product not persisted: %v", err)
	}
	if stored.ScanCount != 1 {
		t.Fatalf("persisted scan count = %d, want 1", stored.ScanCount)
	}
}

func TestResolveRemoteMissConsumesNothing(t *testing.T) {
	f := newFixture(t, catalog.StaticResolver{})
	ctx := context.Background()
	acc := f.seedAccount(t, tier.Free, 2)

	_, err := f.svc.Resolve(ctx, acc.ID, "unknown")
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := f.counter(t, acc.ID); got != 2 {
		t.Fatalf("failed resolution consumed quota: counter = %d, want 2", got)
	}
	if _, err := f.products.FindByBarcode(ctx, "unknown"); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("miss must not create a product record, got %v", err)
	}
}

func TestResolveTransientFailureDegrades(t *testing.T) {
	f := newFixture(t, failingResolver{})
	ctx := context.Background()
	acc := f.seedAccount(t, tier.Free, 1)

	_, err := f.svc.Resolve(ctx, acc.ID, "b")
	if !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("transient failure should degrade to not-found, got %v", err)
	}
	if got := f.counter(t, acc.ID); got != 1 {
		t.Fatalf("transient failure consumed quota: counter = %d, want 1", got)
	}
	if _, err := f.products.FindByBarcode(ctx, "b"); !errors.Is(err, product.ErrNotFound) {
		t.Fatalf("transient failure must not cache a negative, got %v", err)
	}
}

func TestConcurrentUnknownBarcodeCreatesOneRecord(t *testing.T) {
	resolver := catalog.StaticResolver{Products: map[string]product.Product{
		"shared": {Barcode: "shared", Name: "Contested"},
	}}
	f := newFixture(t, resolver)
	ctx := context.Background()

	accA := f.seedAccount(t, tier.Basic, 0)
	accB := f.seedAccount(t, tier.Basic, 0)

	var wg sync.WaitGroup
	for _, id := range []string{accA.ID, accB.ID} {
		wg.Add(1)
		go func(accountID string) {
			defer wg.Done()
			if _, err := f.svc.Resolve(ctx, accountID, "shared"); err != nil {
				t.Errorf("resolve: %v", err)
			}
		}(id)
	}
	wg.Wait()

	results, err := f.products.Search(ctx, "contested")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one product record, got %d", len(results))
	}
	if results[0].ScanCount != 2 {
		t.Fatalf("expected both scans recorded, got %d", results[0].ScanCount)
	}
}

func TestQuotaCountsSuccessiveResolutions(t *testing.T) {
	f := newFixture(t, catalog.StaticResolver{})
	ctx := context.Background()
	acc := f.seedAccount(t, tier.Free, 0)

	if _, err := f.products.Upsert(ctx, product.Product{Barcode: "n", Name: "Counted"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Resolve(ctx, acc.ID, "n"); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if got := f.counter(t, acc.ID); got != 3 {
		t.Fatalf("counter = %d after 3 resolutions, want 3", got)
	}
}

func TestSearchDelegation(t *testing.T) {
	f := newFixture(t, catalog.StaticResolver{})
	ctx := context.Background()

	if _, err := f.svc.Search(ctx, ""); !errors.Is(err, product.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}

	if _, err := f.products.Upsert(ctx, product.Product{Barcode: "s", Name: "Searchable"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	results, err := f.svc.Search(ctx, "searchable")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
}
