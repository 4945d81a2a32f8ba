package saved

import (
	"context"
	"errors"

	"github.com/tulip-app/tulip/internal/account"
	"github.com/tulip-app/tulip/internal/product"
)

// Registry manages an account's bookmarked products. Capacity comes from the
// shared tier table; the append itself is an atomic conditional update in
// the account store.
type Registry struct {
	accounts account.Repository
	products product.Repository
}

// NewRegistry builds a saved-products registry.
func NewRegistry(accounts account.Repository, products product.Repository) *Registry {
	return &Registry{accounts: accounts, products: products}
}

// Save bookmarks a product. Duplicates return account.ErrAlreadySaved and a
// full list returns account.ErrCapacityExceeded; neither mutates the list.
func (r *Registry) Save(ctx context.Context, acc account.Account, productID string) error {
	if productID == "" {
		return errors.New("product id is required")
	}
	return r.accounts.AppendSaved(ctx, acc.ID, productID, acc.Tier.SaveLimit())
}

// Unsave removes a bookmark. Removing an absent id is not an error.
func (r *Registry) Unsave(ctx context.Context, acc account.Account, productID string) error {
	return r.accounts.RemoveSaved(ctx, acc.ID, productID)
}

// List resolves the account's saved ids to products, preserving save order.
// Ids whose product has vanished are skipped rather than failing the read.
func (r *Registry) List(ctx context.Context, acc account.Account) ([]product.Product, error) {
	current, err := r.accounts.FindByID(ctx, acc.ID)
	if err != nil {
		return nil, err
	}

	out := make([]product.Product, 0, len(current.SavedProducts))
	for _, barcode := range current.SavedProducts {
		p, err := r.products.FindByBarcode(ctx, barcode)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
