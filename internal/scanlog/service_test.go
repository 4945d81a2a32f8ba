package scanlog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/tulip-app/tulip/internal/logging"
	"github.com/tulip-app/tulip/internal/product"
)

func TestReportAppendsPricesToProduct(t *testing.T) {
	products := product.NewMemoryRepository()
	svc := NewService(NewMemoryRepository(), products, logging.Discard())
	ctx := context.Background()

	if _, err := products.Upsert(ctx, product.Product{Barcode: "b1", Name: "Milk"}); err != nil {
		t.Fatalf("seed product: %v", err)
	}

	accountID := uuid.New().String()
	entry, err := svc.Report(ctx, ReportInput{
		AccountID:   accountID,
		Barcode:     "b1",
		ProductName: "Milk",
		Prices: []PriceReport{
			{Retailer: "MegaMart", Price: 1.99},
			{Retailer: "CornerShop", Price: 2.29},
			{Retailer: "", Price: 9.99},
		},
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if entry.Barcode != "b1" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	p, err := products.FindByBarcode(ctx, "b1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(p.Prices) != 2 {
		t.Fatalf("expected 2 price observations, got %d", len(p.Prices))
	}
	if p.ScanCount != 0 {
		t.Fatalf("price reports must not bump the scan counter, got %d", p.ScanCount)
	}
}

func TestReportUnknownBarcodeStillRecordsHistory(t *testing.T) {
	svc := NewService(NewMemoryRepository(), product.NewMemoryRepository(), logging.Discard())
	ctx := context.Background()
	accountID := uuid.New().String()

	if _, err := svc.Report(ctx, ReportInput{
		AccountID: accountID,
		Barcode:   "ghost",
		Prices:    []PriceReport{{Retailer: "MegaMart", Price: 3.49}},
	}); err != nil {
		t.Fatalf("report: %v", err)
	}

	history, err := svc.History(ctx, accountID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
}

func TestHistoryNewestFirstAndCapped(t *testing.T) {
	svc := NewService(NewMemoryRepository(), product.NewMemoryRepository(), logging.Discard())
	ctx := context.Background()
	accountID := uuid.New().String()

	for i := 0; i < HistoryPageSize+10; i++ {
		if _, err := svc.Report(ctx, ReportInput{
			AccountID:   accountID,
			Barcode:     fmt.Sprintf("code-%03d", i),
			ProductName: "Item",
		}); err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
	}

	history, err := svc.History(ctx, accountID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != HistoryPageSize {
		t.Fatalf("expected %d entries, got %d", HistoryPageSize, len(history))
	}
	if history[0].Barcode != fmt.Sprintf("code-%03d", HistoryPageSize+9) {
		t.Fatalf("expected newest entry first, got %s", history[0].Barcode)
	}
}
