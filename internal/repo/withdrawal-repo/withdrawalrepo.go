package withdrawalrepo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
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

func (r *Repository) Create(ctx context.Context, withdrawal *domain.WithdrawalRequest) (*domain.WithdrawalRequest, error) {
	query := `
		INSERT INTO withdrawal_requests (id, account_id, amount, method, destination, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		withdrawal.ID, withdrawal.AccountID, withdrawal.Amount, withdrawal.Method, withdrawal.Destination, withdrawal.Status,
	).Scan(&withdrawal.CreatedAt)
	if err != nil {
		zap.L().Error("can't save withdrawal request", zap.Error(err))
		return nil, err
	}
	return withdrawal, nil
}

func (r *Repository) GetByID(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	query := `
        SELECT id, account_id, amount, method, destination, status, admin_notes, created_at, processed_at
        FROM withdrawal_requests
        WHERE id = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, requestID))
}

// GetByIDForUpdate locks the request row for the decision transaction.
func (r *Repository) GetByIDForUpdate(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error) {
	query := `
        SELECT id, account_id, amount, method, destination, status, admin_notes, created_at, processed_at
        FROM withdrawal_requests
        WHERE id = $1
        FOR UPDATE
    `
	return r.scanOne(r.db.QueryRow(ctx, query, requestID))
}

func (r *Repository) ListByAccount(ctx context.Context, accountID string) ([]domain.WithdrawalRequest, error) {
	query := `
        SELECT id, account_id, amount, method, destination, status, admin_notes, created_at, processed_at
        FROM withdrawal_requests
        WHERE account_id = $1
        ORDER BY created_at DESC
    `
	return r.list(ctx, query, accountID)
}

func (r *Repository) ListByStatus(ctx context.Context, status string) ([]domain.WithdrawalRequest, error) {
	query := `
        SELECT id, account_id, amount, method, destination, status, admin_notes, created_at, processed_at
        FROM withdrawal_requests
        WHERE status = $1
        ORDER BY created_at ASC
    `
	return r.list(ctx, query, status)
}

// MarkProcessed moves a pending request to its terminal status. Returns false
// when the request was already processed.
func (r *Repository) MarkProcessed(ctx context.Context, requestID, status, adminNotes string, processedAt time.Time) (bool, error) {
	query := `
        UPDATE withdrawal_requests
        SET status = $1, admin_notes = $2, processed_at = $3
        WHERE id = $4 AND status = $5
    `
	tag, err := r.db.Exec(ctx, query, status, adminNotes, processedAt, requestID, domain.RequestPending)
	if err != nil {
		zap.L().Error("failed to process withdrawal request", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]domain.WithdrawalRequest, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		zap.L().Error("failed to fetch withdrawal requests", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var withdrawals []domain.WithdrawalRequest
	for rows.Next() {
		var wd domain.WithdrawalRequest
		err := rows.Scan(&wd.ID, &wd.AccountID, &wd.Amount, &wd.Method, &wd.Destination,
			&wd.Status, &wd.AdminNotes, &wd.CreatedAt, &wd.ProcessedAt)
		if err != nil {
			zap.L().Error("failed to scan withdrawal request row", zap.Error(err))
			return nil, err
		}
		withdrawals = append(withdrawals, wd)
	}
	return withdrawals, nil
}

func (r *Repository) scanOne(row pgx.Row) (*domain.WithdrawalRequest, error) {
	var wd domain.WithdrawalRequest
	err := row.Scan(&wd.ID, &wd.AccountID, &wd.Amount, &wd.Method, &wd.Destination,
		&wd.Status, &wd.AdminNotes, &wd.CreatedAt, &wd.ProcessedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find withdrawal request", zap.Error(err))
		return nil, err
	}
	return &wd, nil
}
