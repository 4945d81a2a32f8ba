package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tulip-app/tulip/internal/tier"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrEmailTaken indicates a signup collision on the email address.
	ErrEmailTaken = errors.New("email already registered")

	// ErrQuotaExceeded indicates the monthly scan quota is exhausted for the
	// account's tier. Returned by ReserveScan without mutating the counter.
	ErrQuotaExceeded = errors.New("scan quota exceeded")

	// ErrAlreadySaved indicates the product id is already on the saved list.
	ErrAlreadySaved = errors.New("product already saved")

	// ErrCapacityExceeded indicates the saved list is at the tier's capacity.
	ErrCapacityExceeded = errors.New("saved products capacity exceeded")
)

// Repository persists accounts. ReserveScan, ReleaseScan, AppendSaved and
// RemoveSaved are atomic read-modify-write operations: concurrent callers
// must never both pass a stale limit check.
type Repository interface {
	Create(ctx context.Context, acc Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
	ReserveScan(ctx context.Context, id string, limit tier.Limit) (int, error)
	ReleaseScan(ctx context.Context, id string) error
	ResetPeriod(ctx context.Context, id string, start time.Time) error
	UpdateTier(ctx context.Context, id string, t tier.Tier, subStart, subEnd time.Time) error
	AppendSaved(ctx context.Context, id, productID string, capacity tier.Limit) error
	RemoveSaved(ctx context.Context, id, productID string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, name, password_hash, tier, scans_this_month,
    scan_period_start, saved_products, subscription_start, subscription_end, created_at`

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, acc Account) error {
	accountID, err := uuid.Parse(acc.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO accounts
        (id, email, name, password_hash, tier, scans_this_month, scan_period_start,
         saved_products, subscription_start, subscription_end, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		accountID, acc.Email, acc.Name, acc.PasswordHash, string(acc.Tier),
		acc.ScansThisMonth, acc.ScanPeriodStart.UTC(), acc.SavedProducts,
		nullableTime(acc.SubscriptionStart), nullableTime(acc.SubscriptionEnd), acc.CreatedAt.UTC())
	if err != nil && isUniqueViolation(err) {
		return ErrEmailTaken
	}
	return err
}

// FindByEmail fetches an account by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
	return scanAccount(row)
}

// FindByID fetches an account by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

// ReserveScan performs the conditional increment in a single statement so two
// concurrent requests cannot both pass a stale check. Returns the
// post-increment counter.
func (r *PostgresRepository) ReserveScan(ctx context.Context, id string, limit tier.Limit) (int, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return 0, ErrNotFound
	}

	var query string
	var args []any
	if limit.Unbounded {
		query = `UPDATE accounts SET scans_this_month = scans_this_month + 1
            WHERE id = $1 RETURNING scans_this_month`
		args = []any{accountID}
	} else {
		query = `UPDATE accounts SET scans_this_month = scans_this_month + 1
            WHERE id = $1 AND scans_this_month < $2 RETURNING scans_this_month`
		args = []any{accountID, limit.Max}
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either missing or over quota; a follow-up read disambiguates.
			if _, findErr := r.FindByID(ctx, id); findErr != nil {
				return 0, findErr
			}
			return 0, ErrQuotaExceeded
		}
		return 0, err
	}
	return count, nil
}

// ReleaseScan undoes a reservation whose resolution failed, flooring at zero.
func (r *PostgresRepository) ReleaseScan(ctx context.Context, id string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `UPDATE accounts
        SET scans_this_month = GREATEST(scans_this_month - 1, 0) WHERE id = $1`, accountID)
	return err
}

// ResetPeriod zeroes the monthly counter and stamps the new period start.
func (r *PostgresRepository) ResetPeriod(ctx context.Context, id string, start time.Time) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts
        SET scans_this_month = 0, scan_period_start = $1 WHERE id = $2`, start.UTC(), accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTier switches the subscription tier and stamps the subscription window.
func (r *PostgresRepository) UpdateTier(ctx context.Context, id string, t tier.Tier, subStart, subEnd time.Time) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE accounts
        SET tier = $1, subscription_start = $2, subscription_end = $3 WHERE id = $4`,
		string(t), subStart.UTC(), subEnd.UTC(), accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendSaved appends a product id if it is absent and the list is under the
// tier capacity, in one conditional statement.
func (r *PostgresRepository) AppendSaved(ctx context.Context, id, productID string, capacity tier.Limit) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	var query string
	var args []any
	if capacity.Unbounded {
		query = `UPDATE accounts SET saved_products = array_append(saved_products, $2)
            WHERE id = $1 AND NOT saved_products @> ARRAY[$2]`
		args = []any{accountID, productID}
	} else {
		query = `UPDATE accounts SET saved_products = array_append(saved_products, $2)
            WHERE id = $1 AND NOT saved_products @> ARRAY[$2]
            AND cardinality(saved_products) < $3`
		args = []any{accountID, productID, capacity.Max}
	}

	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}

	acc, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	for _, saved := range acc.SavedProducts {
		if saved == productID {
			return ErrAlreadySaved
		}
	}
	return ErrCapacityExceeded
}

// RemoveSaved deletes the product id from the saved list. Removing an absent
// id is a no-op.
func (r *PostgresRepository) RemoveSaved(ctx context.Context, id, productID string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	_, err = r.db.Exec(ctx, `UPDATE accounts
        SET saved_products = array_remove(saved_products, $2) WHERE id = $1`, accountID, productID)
	return err
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acc       Account
		accountID uuid.UUID
		tierValue string
		subStart  *time.Time
		subEnd    *time.Time
	)
	err := row.Scan(&accountID, &acc.Email, &acc.Name, &acc.PasswordHash, &tierValue,
		&acc.ScansThisMonth, &acc.ScanPeriodStart, &acc.SavedProducts, &subStart, &subEnd, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acc.ID = accountID.String()
	acc.Tier = tier.Tier(tierValue)
	acc.ScanPeriodStart = acc.ScanPeriodStart.UTC()
	if subStart != nil {
		acc.SubscriptionStart = subStart.UTC()
	}
	if subEnd != nil {
		acc.SubscriptionEnd = subEnd.UTC()
	}
	acc.CreatedAt = acc.CreatedAt.UTC()
	return acc, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func isUniqueViolation(err error) bool {
	type sqlState interface{ SQLState() string }
	var state sqlState
	if errors.As(err, &state) {
		return state.SQLState() == "23505"
	}
	return false
}
