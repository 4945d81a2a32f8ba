package scanlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists scan history entries.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	History(ctx context.Context, accountID string, limit int) ([]Entry, error)
}

// PostgresRepository stores scan history in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed scan history repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts a history entry.
func (r *PostgresRepository) Append(ctx context.Context, entry Entry) error {
	entryID, err := uuid.Parse(entry.ID)
	if err != nil {
		return err
	}
	accountID, err := uuid.Parse(entry.AccountID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO scan_events (id, account_id, barcode, product_name, recorded_at)
        VALUES ($1, $2, $3, $4, $5)`,
		entryID, accountID, entry.Barcode, entry.ProductName, entry.RecordedAt.UTC())
	return err
}

// History returns the account's most recent entries, newest first.
func (r *PostgresRepository) History(ctx context.Context, accountID string, limit int) ([]Entry, error) {
	accID, err := uuid.Parse(accountID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > HistoryPageSize {
		limit = HistoryPageSize
	}

	rows, err := r.db.Query(ctx, `SELECT id, account_id, barcode, product_name, recorded_at
        FROM scan_events WHERE account_id = $1 ORDER BY recorded_at DESC LIMIT $2`, accID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry    Entry
			id       uuid.UUID
			account  uuid.UUID
			recorded time.Time
		)
		if err := rows.Scan(&id, &account, &entry.Barcode, &entry.ProductName, &recorded); err != nil {
			return nil, err
		}
		entry.ID = id.String()
		entry.AccountID = account.String()
		entry.RecordedAt = recorded.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}
