package accountrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
)

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	query := `
        SELECT id, owner_id, balance, pending_balance, updated_at
        FROM accounts
        WHERE owner_id = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, ownerID))
}

func (r *Repository) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
        SELECT id, owner_id, balance, pending_balance, updated_at
        FROM accounts
        WHERE id = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, accountID))
}

// GetByIDForUpdate locks the account row for the rest of the surrounding
// transaction. Every balance mutation goes through this lock, which serializes
// concurrent debits per account.
func (r *Repository) GetByIDForUpdate(ctx context.Context, accountID string) (*domain.Account, error) {
	query := `
        SELECT id, owner_id, balance, pending_balance, updated_at
        FROM accounts
        WHERE id = $1
        FOR UPDATE
    `
	return r.scanOne(r.db.QueryRow(ctx, query, accountID))
}

func (r *Repository) Create(ctx context.Context, accountID, ownerID string) (*domain.Account, error) {
	query := `
        INSERT INTO accounts (id, owner_id, balance, pending_balance)
        VALUES ($1, $2, 0, 0)
        RETURNING id, owner_id, balance, pending_balance, updated_at
    `
	account, err := r.scanOne(r.db.QueryRow(ctx, query, accountID, ownerID))
	if err != nil {
		zap.L().Error("failed to create account", zap.Error(err))
		return nil, err
	}
	return account, nil
}

func (r *Repository) UpdateBalances(ctx context.Context, accountID string, balance, pending decimal.Decimal) error {
	query := `
        UPDATE accounts
        SET balance = $1, pending_balance = $2, updated_at = now()
        WHERE id = $3
    `
	_, err := r.db.Exec(ctx, query, balance, pending, accountID)
	if err != nil {
		zap.L().Error("failed to update account balances", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(&account.ID, &account.OwnerID, &account.Balance, &account.PendingBalance, &account.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
