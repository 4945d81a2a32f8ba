package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/catalog"
	"github.com/tulip-app/tulip/internal/product"
	"github.com/tulip-app/tulip/internal/quota"
	"github.com/tulip-app/tulip/internal/scanlog"
	"github.com/tulip-app/tulip/internal/tier"
)

// Service is the quota-gated resolution pipeline: reserve quota, look up
// locally, fall back to the remote catalog on miss, persist new products and
// record the scan.
type Service struct {
	accounts account.Repository
	quota    *quota.Tracker
	products product.Repository
	resolver catalog.Resolver
	history  *scanlog.Service
	logger   *slog.Logger
}

// NewService wires the resolution pipeline.
func NewService(accounts account.Repository, tracker *quota.Tracker, products product.Repository,
	resolver catalog.Resolver, history *scanlog.Service, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		quota:    tracker,
		products: products,
		resolver: resolver,
		history:  history,
		logger:   logger,
	}
}

// Result is a successful resolution outcome.
type Result struct {
	Product        product.Product
	ScansRemaining tier.Remaining
}

// Resolve maps a barcode to a product on behalf of an account. The quota
// reservation happens before the remote call so exhausted accounts are
// rejected cheaply; a resolution that ends in not-found releases the
// reservation, so quota meters successful lookups, not attempts.
func (s *Service) Resolve(ctx context.Context, accountID, barcode string) (Result, error) {
	if barcode == "" {
		return Result{}, fmt.Errorf("barcode is required")
	}

	acc, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return Result{}, err
	}

	remaining, err := s.quota.Reserve(ctx, acc)
	if err != nil {
		return Result{}, err
	}

	_, err = s.products.FindByBarcode(ctx, barcode)
	switch {
	case err == nil:
		// Local hit.
	case errors.Is(err, product.ErrNotFound):
		_, err = s.resolveRemote(ctx, acc.ID, barcode)
		if err != nil {
			return Result{}, err
		}
	default:
		s.releaseQuota(ctx, acc.ID)
		return Result{}, fmt.Errorf("catalog lookup: %w", err)
	}

	recorded, err := s.products.RecordObservation(ctx, barcode, 1, nil)
	if err != nil {
		s.releaseQuota(ctx, acc.ID)
		return Result{}, fmt.Errorf("record scan: %w", err)
	}

	if err := s.history.RecordResolution(ctx, acc.ID, recorded); err != nil {
		// History is best-effort; the resolution itself already committed.
		s.logger.Warn("scan history append failed", "account_id", acc.ID, "barcode", barcode, "error", err)
	}

	return Result{Product: recorded, ScansRemaining: remaining}, nil
}

// resolveRemote runs the fallback lookup and persists a hit. A confirmed
// miss is terminal for this request; a transient failure degrades to
// not-found without caching a negative, and neither consumes quota.
func (s *Service) resolveRemote(ctx context.Context, accountID, barcode string) (product.Product, error) {
	remote, err := s.resolver.Lookup(ctx, barcode)
	if err != nil {
		s.releaseQuota(ctx, accountID)
		if errors.Is(err, catalog.ErrNotFound) {
			return product.Product{}, product.ErrNotFound
		}
		if errors.Is(err, catalog.ErrUnavailable) {
			s.logger.Warn("remote catalog unavailable, degrading to not-found", "barcode", barcode, "error", err)
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, fmt.Errorf("remote lookup: %w", err)
	}

	stored, err := s.products.Upsert(ctx, remote)
	if err != nil {
		s.releaseQuota(ctx, accountID)
		return product.Product{}, fmt.Errorf("persist resolved product: %w", err)
	}
	return stored, nil
}

// Search runs a catalog text search for the transport layer. The empty-query
// rejection and the page cap live in the store.
func (s *Service) Search(ctx context.Context, query string) ([]product.Product, error) {
	return s.products.Search(ctx, query)
}

func (s *Service) releaseQuota(ctx context.Context, accountID string) {
	if err := s.quota.Release(ctx, accountID); err != nil {
		s.logger.Error("quota release failed", "account_id", accountID, "error", err)
	}
}
