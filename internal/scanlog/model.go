package scanlog

import "time"

// Entry is one recorded scan event for an account's history. Entries are
// append-only; history reads return the most recent first.
type Entry struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Barcode     string    `json:"barcode"`
	ProductName string    `json:"product_name"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// HistoryPageSize caps how many entries a history read returns.
const HistoryPageSize = 50
