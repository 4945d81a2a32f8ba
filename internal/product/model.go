package product

import "time"

// Nutrition holds the structured nutrition facts carried on every product.
// Missing values default to zero.
type Nutrition struct {
	Calories float64 `json:"calories"`
	Fat      float64 `json:"fat"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
}

// PriceObservation is a single retailer/price/time record. The price list is
// append-only and not deduplicated by retailer.
type PriceObservation struct {
	Retailer   string    `json:"retailer"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// Product is a canonical catalog record keyed by barcode. AverageRating is
// human-curated and never overwritten by remote catalog data; ScanCount is
// global and monotonic, incremented once per successful resolution.
type Product struct {
	Barcode        string             `json:"barcode"`
	Name           string             `json:"name"`
	Brand          string             `json:"brand"`
	Category       string             `json:"category"`
	Description    string             `json:"description"`
	ImageURL       string             `json:"image_url,omitempty"`
	Ingredients    string             `json:"ingredients"`
	Certifications []string           `json:"certifications,omitempty"`
	Nutrition      Nutrition          `json:"nutrition_facts"`
	AverageRating  float64            `json:"average_rating"`
	ScanCount      int64              `json:"scan_count"`
	Prices         []PriceObservation `json:"prices,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// merge fills empty fields of the stored product from incoming remote data.
// Identity fields keep their first written value; curated fields
// (AverageRating) are untouched; counters and prices are not merged here.
func merge(existing, incoming Product) Product {
	out := existing
	if out.Name == "" {
		out.Name = incoming.Name
	}
	if out.Brand == "" {
		out.Brand = incoming.Brand
	}
	if out.Category == "" {
		out.Category = incoming.Category
	}
	if out.Description == "" {
		out.Description = incoming.Description
	}
	if out.ImageURL == "" {
		out.ImageURL = incoming.ImageURL
	}
	if out.Ingredients == "" {
		out.Ingredients = incoming.Ingredients
	}
	if len(out.Certifications) == 0 {
		out.Certifications = incoming.Certifications
	}
	if out.Nutrition == (Nutrition{}) {
		out.Nutrition = incoming.Nutrition
	}
	return out
}
