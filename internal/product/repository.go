package product

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates the barcode has no catalog record.
	ErrNotFound = errors.New("product not found")

	// ErrEmptyQuery indicates a search with no query text. Empty queries are
	// rejected rather than treated as match-all.
	ErrEmptyQuery = errors.New("search query required")
)

// SearchPageSize caps the number of products a single search returns.
const SearchPageSize = 20

// Repository persists catalog products keyed by barcode. Upsert must be
// idempotent under concurrent writers resolving the same unknown barcode.
type Repository interface {
	FindByBarcode(ctx context.Context, barcode string) (Product, error)
	Upsert(ctx context.Context, p Product) (Product, error)
	RecordObservation(ctx context.Context, barcode string, scanIncrement int64, obs *PriceObservation) (Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed catalog store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `barcode, name, brand, category, description, image_url, ingredients,
    certifications, calories, fat, protein, carbs, sugar, sodium,
    average_rating, scan_count, prices, created_at, updated_at`

// FindByBarcode fetches a product by its barcode.
func (r *PostgresRepository) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
	return scanProduct(row)
}

// Upsert inserts the product or fills empty fields on the existing row.
// Uniqueness rides on the barcode primary key: concurrent inserts of the
// same barcode collapse into one row via ON CONFLICT. AverageRating,
// ScanCount and the price list are never touched by remote data.
func (r *PostgresRepository) Upsert(ctx context.Context, p Product) (Product, error) {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, `INSERT INTO products
        (barcode, name, brand, category, description, image_url, ingredients, certifications,
         calories, fat, protein, carbs, sugar, sodium, average_rating, scan_count, prices,
         created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, 0, '[]'::jsonb, $15, $15)
        ON CONFLICT (barcode) DO UPDATE SET
            name        = CASE WHEN products.name        = '' THEN EXCLUDED.name        ELSE products.name        END,
            brand       = CASE WHEN products.brand       = '' THEN EXCLUDED.brand       ELSE products.brand       END,
            category    = CASE WHEN products.category    = '' THEN EXCLUDED.category    ELSE products.category    END,
            description = CASE WHEN products.description = '' THEN EXCLUDED.description ELSE products.description END,
            image_url   = CASE WHEN products.image_url   = '' THEN EXCLUDED.image_url   ELSE products.image_url   END,
            ingredients = CASE WHEN products.ingredients = '' THEN EXCLUDED.ingredients ELSE products.ingredients END,
            certifications = CASE WHEN cardinality(products.certifications) = 0
                THEN EXCLUDED.certifications ELSE products.certifications END,
            calories = CASE WHEN products.calories = 0 THEN EXCLUDED.calories ELSE products.calories END,
            fat      = CASE WHEN products.fat      = 0 THEN EXCLUDED.fat      ELSE products.fat      END,
            protein  = CASE WHEN products.protein  = 0 THEN EXCLUDED.protein  ELSE products.protein  END,
            carbs    = CASE WHEN products.carbs    = 0 THEN EXCLUDED.carbs    ELSE products.carbs    END,
            sugar    = CASE WHEN products.sugar    = 0 THEN EXCLUDED.sugar    ELSE products.sugar    END,
            sodium   = CASE WHEN products.sodium   = 0 THEN EXCLUDED.sodium   ELSE products.sodium   END,
            updated_at = EXCLUDED.updated_at
        RETURNING `+productColumns,
		p.Barcode, p.Name, p.Brand, p.Category, p.Description, p.ImageURL, p.Ingredients,
		certsOrEmpty(p.Certifications), p.Nutrition.Calories, p.Nutrition.Fat, p.Nutrition.Protein,
		p.Nutrition.Carbs, p.Nutrition.Sugar, p.Nutrition.Sodium, now)
	return scanProduct(row)
}

// RecordObservation bumps the global scan counter and optionally appends a
// price observation. Appends are not deduplicated by retailer.
func (r *PostgresRepository) RecordObservation(ctx context.Context, barcode string, scanIncrement int64, obs *PriceObservation) (Product, error) {
	var priceJSON []byte
	if obs != nil {
		encoded, err := json.Marshal([]PriceObservation{*obs})
		if err != nil {
			return Product{}, err
		}
		priceJSON = encoded
	}

	row := r.db.QueryRow(ctx, `UPDATE products SET
            scan_count = scan_count + $2,
            prices = CASE WHEN $3::jsonb IS NULL THEN prices ELSE prices || $3::jsonb END,
            updated_at = $4
        WHERE barcode = $1
        RETURNING `+productColumns,
		barcode, scanIncrement, priceJSON, time.Now().UTC())
	return scanProduct(row)
}

// Search matches the query against name and brand, most scanned first.
func (r *PostgresRepository) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products
        WHERE name ILIKE '%' || $1 || '%' OR brand ILIKE '%' || $1 || '%'
        ORDER BY scan_count DESC, barcode
        LIMIT $2`, query, SearchPageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var prices []byte
	err := row.Scan(&p.Barcode, &p.Name, &p.Brand, &p.Category, &p.Description, &p.ImageURL,
		&p.Ingredients, &p.Certifications, &p.Nutrition.Calories, &p.Nutrition.Fat,
		&p.Nutrition.Protein, &p.Nutrition.Carbs, &p.Nutrition.Sugar, &p.Nutrition.Sodium,
		&p.AverageRating, &p.ScanCount, &prices, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	if len(prices) > 0 {
		if err := json.Unmarshal(prices, &p.Prices); err != nil {
			return Product{}, err
		}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func certsOrEmpty(certs []string) []string {
	if certs == nil {
		return []string{}
	}
	return certs
}
