package catalog

import (
	"context"
	"errors"

	"github.com/tulip-app/tulip/internal/product"
)

var (
	// ErrNotFound means the remote catalog confirmed the barcode does not
	// exist. Terminal for the request, but never cached: a re-check later
	// may succeed once the catalog learns the product.
	ErrNotFound = errors.New("barcode not in remote catalog")

	// ErrUnavailable covers transport, timeout and decode failures. Callers
	// degrade to a local-only answer and must not record a negative.
	ErrUnavailable = errors.New("remote catalog unavailable")
)

// Resolver looks up product data in an external catalog when the local store
// misses.
type Resolver interface {
	Lookup(ctx context.Context, barcode string) (product.Product, error)
}

// StaticResolver serves lookups from a fixed product set. Used in
// development mode and tests in place of the live catalog.
type StaticResolver struct {
	Products map[string]product.Product
}

// Lookup returns the fixture for the barcode or a confirmed miss.
func (s StaticResolver) Lookup(_ context.Context, barcode string) (product.Product, error) {
	if p, ok := s.Products[barcode]; ok {
		return p, nil
	}
	return product.Product{}, ErrNotFound
}
