package scanlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tulip-app/tulip/internal/product"
)

// Service records client-reported scan events and forwards any retailer
// price observations to the catalog store.
type Service struct {
	repo     Repository
	products product.Repository
	logger   *slog.Logger
}

// NewService builds a scan history service.
func NewService(repo Repository, products product.Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger}
}

// PriceReport is a retailer price supplied by the client alongside a scan.
type PriceReport struct {
	Retailer string  `json:"retailer"`
	Price    float64 `json:"price"`
}

// ReportInput captures a client-submitted scan event.
type ReportInput struct {
	AccountID   string
	Barcode     string
	ProductName string
	Prices      []PriceReport
}

// Report appends a history entry and, for each reported price, an
// observation on the product's price list. Price reports against unknown
// barcodes are dropped with a log line; the history entry still lands.
func (s *Service) Report(ctx context.Context, input ReportInput) (Entry, error) {
	if input.Barcode == "" {
		return Entry{}, fmt.Errorf("barcode is required")
	}

	entry := Entry{
		ID:          uuid.New().String(),
		AccountID:   input.AccountID,
		Barcode:     input.Barcode,
		ProductName: input.ProductName,
		RecordedAt:  time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return Entry{}, err
	}

	for _, report := range input.Prices {
		if report.Retailer == "" || report.Price <= 0 {
			continue
		}
		obs := product.PriceObservation{
			Retailer:   report.Retailer,
			Price:      report.Price,
			ObservedAt: entry.RecordedAt,
		}
		if _, err := s.products.RecordObservation(ctx, input.Barcode, 0, &obs); err != nil {
			if errors.Is(err, product.ErrNotFound) {
				s.logger.Info("price report for unknown barcode dropped", "barcode", input.Barcode)
				continue
			}
			return Entry{}, err
		}
	}

	return entry, nil
}

// RecordResolution appends a history entry for a pipeline-resolved scan.
func (s *Service) RecordResolution(ctx context.Context, accountID string, p product.Product) error {
	return s.repo.Append(ctx, Entry{
		ID:          uuid.New().String(),
		AccountID:   accountID,
		Barcode:     p.Barcode,
		ProductName: p.Name,
		RecordedAt:  time.Now().UTC(),
	})
}

// History returns the most recent entries for the account.
func (s *Service) History(ctx context.Context, accountID string) ([]Entry, error) {
	return s.repo.History(ctx, accountID, HistoryPageSize)
}
