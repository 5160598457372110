package ledgerrepo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
)

// ErrDuplicateIdempotencyKey is returned when an entry with the same
// (account_id, idempotency_key) pair already exists. The original request
// already landed; callers treat this as a no-op.
var ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

const uniqueViolation = "23505"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

// Append inserts an immutable ledger entry. Entries are never updated or
// deleted after this point.
func (r *Repository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
        INSERT INTO ledger_entries (id, account_id, amount, kind, reference_id, idempotency_key)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at
    `
	err := r.db.QueryRow(ctx, query,
		entry.ID, entry.AccountID, entry.Amount, entry.Kind, entry.ReferenceID, entry.IdempotencyKey,
	).Scan(&entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateIdempotencyKey
		}
		zap.L().Error("can't append ledger entry", zap.Error(err))
		return err
	}
	return nil
}

// SumByAccount derives the account total from the log. Used by reconciliation;
// the cached columns on accounts must always match this figure.
func (r *Repository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
        SELECT COALESCE(SUM(amount), 0)
        FROM ledger_entries
        WHERE account_id = $1
    `
	var sum decimal.Decimal
	if err := r.db.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		zap.L().Error("can't sum ledger entries", zap.Error(err))
		return decimal.Zero, err
	}
	return sum, nil
}

// ListByAccount returns up to limit entries, newest first, starting after the
// given cursor. The returned cursor restarts the listing at the next page; it
// is empty when the page was the last one.
func (r *Repository) ListByAccount(ctx context.Context, accountID string, limit int, cursor string) ([]domain.LedgerEntry, string, error) {
	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	var query string
	var args []any
	if after == nil {
		query = `
            SELECT id, account_id, amount, kind, reference_id, idempotency_key, created_at
            FROM ledger_entries
            WHERE account_id = $1
            ORDER BY created_at DESC, id DESC
            LIMIT $2
        `
		args = []any{accountID, limit}
	} else {
		query = `
            SELECT id, account_id, amount, kind, reference_id, idempotency_key, created_at
            FROM ledger_entries
            WHERE account_id = $1 AND (created_at, id) < ($2, $3)
            ORDER BY created_at DESC, id DESC
            LIMIT $4
        `
		args = []any{accountID, after.createdAt, after.entryID, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		zap.L().Error("can't list ledger entries", zap.Error(err))
		return nil, "", err
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		err := rows.Scan(&e.ID, &e.AccountID, &e.Amount, &e.Kind, &e.ReferenceID, &e.IdempotencyKey, &e.CreatedAt)
		if err != nil {
			zap.L().Error("can't scan ledger entry row", zap.Error(err))
			return nil, "", err
		}
		entries = append(entries, e)
	}

	next := ""
	if len(entries) == limit {
		last := entries[len(entries)-1]
		next = encodeCursor(last.CreatedAt, last.ID)
	}
	return entries, next, nil
}
