package refundrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
)

// ErrAlreadyRequested is returned when a refund request for the order already
// exists; refund_requests carries a unique index on order_id.
var ErrAlreadyRequested = errors.New("refund already requested for order")

const uniqueViolation = "23505"

type Repository struct {
	db pg.Database
}

func New(db pg.Database) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) Create(ctx context.Context, refund *domain.RefundRequest) (*domain.RefundRequest, error) {
	query := `
		INSERT INTO refund_requests (id, order_id, buyer_id, amount, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		refund.ID, refund.OrderID, refund.BuyerID, refund.Amount, refund.Status, refund.Reason,
	).Scan(&refund.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrAlreadyRequested
		}
		zap.L().Error("can't save refund request", zap.Error(err))
		return nil, err
	}
	return refund, nil
}

func (r *Repository) GetByIDForUpdate(ctx context.Context, requestID string) (*domain.RefundRequest, error) {
	query := `
        SELECT id, order_id, buyer_id, amount, status, reason, created_at, processed_at
        FROM refund_requests
        WHERE id = $1
        FOR UPDATE
    `
	return r.scanOne(r.db.QueryRow(ctx, query, requestID))
}

func (r *Repository) ListByStatus(ctx context.Context, status string) ([]domain.RefundRequest, error) {
	query := `
        SELECT id, order_id, buyer_id, amount, status, reason, created_at, processed_at
        FROM refund_requests
        WHERE status = $1
        ORDER BY created_at ASC
    `
	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		zap.L().Error("failed to fetch refund requests", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var refunds []domain.RefundRequest
	for rows.Next() {
		var rf domain.RefundRequest
		err := rows.Scan(&rf.ID, &rf.OrderID, &rf.BuyerID, &rf.Amount, &rf.Status, &rf.Reason, &rf.CreatedAt, &rf.ProcessedAt)
		if err != nil {
			zap.L().Error("failed to scan refund request row", zap.Error(err))
			return nil, err
		}
		refunds = append(refunds, rf)
	}
	return refunds, nil
}

// MarkProcessed moves a pending refund request to its terminal status.
func (r *Repository) MarkProcessed(ctx context.Context, requestID, status string, processedAt time.Time) (bool, error) {
	query := `
        UPDATE refund_requests
        SET status = $1, processed_at = $2
        WHERE id = $3 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, status, processedAt, requestID, domain.RequestPending)
	if err != nil {
		zap.L().Error("failed to process refund request", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) scanOne(row pgx.Row) (*domain.RefundRequest, error) {
	var rf domain.RefundRequest
	err := row.Scan(&rf.ID, &rf.OrderID, &rf.BuyerID, &rf.Amount, &rf.Status, &rf.Reason, &rf.CreatedAt, &rf.ProcessedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find refund request", zap.Error(err))
		return nil, err
	}
	return &rf, nil
}
