package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tulip-app/tulip/internal/product"
)

// DefaultBaseURL points at the public Open Food Facts API.
const DefaultBaseURL = "https://world.openfoodfacts.org"

const defaultTimeout = 5 * time.Second

// Fallback field values for sparse remote records.
const (
	unknownName     = "Unknown Product"
	unknownBrand    = "Unknown Brand"
	defaultCategory = "General"
)

// OpenFoodFactsClient resolves barcodes against the Open Food Facts HTTP
// API. The underlying client carries a hard timeout so a slow catalog can
// never stall a lookup request indefinitely.
type OpenFoodFactsClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOpenFoodFactsClient builds a resolver against the given base URL.
// Empty baseURL falls back to the public API; non-positive timeout falls
// back to the default.
func NewOpenFoodFactsClient(baseURL string, timeout time.Duration, logger *slog.Logger) *OpenFoodFactsClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OpenFoodFactsClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type offPayload struct {
	Status  int `json:"status"`
	Product struct {
		ProductName     string `json:"product_name"`
		Brands          string `json:"brands"`
		Categories      string `json:"categories"`
		IngredientsText string `json:"ingredients_text"`
		ImageURL        string `json:"image_url"`
		Nutriments      struct {
			EnergyKcal    float64 `json:"energy_kcal"`
			Fat           float64 `json:"fat"`
			Proteins      float64 `json:"proteins"`
			Carbohydrates float64 `json:"carbohydrates"`
			Sugars        float64 `json:"sugars"`
			Sodium        float64 `json:"sodium"`
		} `json:"nutriments"`
	} `json:"product"`
}

// Lookup fetches the barcode from the remote catalog and maps the external
// schema onto the internal product shape. A status of 0 is a confirmed miss;
// transport and decode problems map to ErrUnavailable.
func (c *OpenFoodFactsClient) Lookup(ctx context.Context, barcode string) (product.Product, error) {
	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return product.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("remote catalog request failed", "barcode", barcode, "error", err)
		return product.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return product.Product{}, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("remote catalog returned error status", "barcode", barcode, "status", resp.StatusCode)
		return product.Product{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload offPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.Warn("remote catalog payload decode failed", "barcode", barcode, "error", err)
		return product.Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if payload.Status != 1 {
		return product.Product{}, ErrNotFound
	}

	return mapRemoteProduct(barcode, payload), nil
}

func mapRemoteProduct(barcode string, payload offPayload) product.Product {
	remote := payload.Product

	p := product.Product{
		Barcode:     barcode,
		Name:        remote.ProductName,
		Brand:       remote.Brands,
		Category:    remote.Categories,
		Description: remote.IngredientsText,
		Ingredients: remote.IngredientsText,
		ImageURL:    remote.ImageURL,
		Nutrition: product.Nutrition{
			Calories: remote.Nutriments.EnergyKcal,
			Fat:      remote.Nutriments.Fat,
			Protein:  remote.Nutriments.Proteins,
			Carbs:    remote.Nutriments.Carbohydrates,
			Sugar:    remote.Nutriments.Sugars,
			Sodium:   remote.Nutriments.Sodium,
		},
	}
	if p.Name == "" {
		p.Name = unknownName
	}
	if p.Brand == "" {
		p.Brand = unknownBrand
	}
	if p.Category == "" {
		p.Category = defaultCategory
	}
	return p
}
