package orderrepo

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

func (r *Repository) Save(ctx context.Context, order *domain.Order) error {
	query := `
        INSERT INTO orders (id, buyer_id, seller_id, product_id, amount, seller_earning, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at
    `
	err := r.db.QueryRow(ctx, query,
		order.ID, order.BuyerID, order.SellerID, order.ProductID, order.Amount, order.SellerEarning, order.Status,
	).Scan(&order.CreatedAt)
	if err != nil {
		zap.L().Error("can't save order", zap.Error(err))
		return err
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `
        SELECT id, buyer_id, seller_id, product_id, amount, seller_earning, status, created_at, delivered_at
        FROM orders
        WHERE id = $1
    `
	return r.scanOne(r.db.QueryRow(ctx, query, orderID))
}

// GetByIDForUpdate locks the order row so a transition and its ledger effects
// commit together or not at all.
func (r *Repository) GetByIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `
        SELECT id, buyer_id, seller_id, product_id, amount, seller_earning, status, created_at, delivered_at
        FROM orders
        WHERE id = $1
        FOR UPDATE
    `
	return r.scanOne(r.db.QueryRow(ctx, query, orderID))
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	query := `
        SELECT id, buyer_id, seller_id, product_id, amount, seller_earning, status, created_at, delivered_at
        FROM orders
        WHERE buyer_id = $1 OR seller_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		zap.L().Error("can't get orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		err := rows.Scan(&order.ID, &order.BuyerID, &order.SellerID, &order.ProductID,
			&order.Amount, &order.SellerEarning, &order.Status, &order.CreatedAt, &order.DeliveredAt)
		if err != nil {
			zap.L().Error("can't scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// UpdateStatus flips the order status only when the current status still
// matches expected. Returns false without error when another transition won:
// a failed flip looks like a transition that was never attempted.
func (r *Repository) UpdateStatus(ctx context.Context, orderID, expected, next string) (bool, error) {
	query := `
        UPDATE orders
        SET status = $1
        WHERE id = $2 AND status = $3
    `
	tag, err := r.db.Exec(ctx, query, next, orderID, expected)
	if err != nil {
		zap.L().Error("failed to update order status", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) MarkDelivered(ctx context.Context, orderID string, deliveredAt time.Time) (bool, error) {
	query := `
        UPDATE orders
        SET status = $1, delivered_at = $2
        WHERE id = $3 AND status = $4
    `
	tag, err := r.db.Exec(ctx, query, domain.OrderDelivered, deliveredAt, orderID, domain.OrderPending)
	if err != nil {
		zap.L().Error("failed to mark order delivered", zap.Error(err))
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FindDeliveredBefore returns delivered orders whose confirmation window has
// lapsed; the settle worker completes them.
func (r *Repository) FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	query := `
        SELECT id, buyer_id, seller_id, product_id, amount, seller_earning, status, created_at, delivered_at
        FROM orders
        WHERE status = $1 AND delivered_at < $2
        ORDER BY delivered_at ASC
        LIMIT $3
    `
	rows, err := r.db.Query(ctx, query, domain.OrderDelivered, cutoff, limit)
	if err != nil {
		zap.L().Error("can't get orders for auto-completion", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		err := rows.Scan(&order.ID, &order.BuyerID, &order.SellerID, &order.ProductID,
			&order.Amount, &order.SellerEarning, &order.Status, &order.CreatedAt, &order.DeliveredAt)
		if err != nil {
			zap.L().Error("can't scan order row for auto-completion", zap.Error(err))
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (r *Repository) scanOne(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(&order.ID, &order.BuyerID, &order.SellerID, &order.ProductID,
		&order.Amount, &order.SellerEarning, &order.Status, &order.CreatedAt, &order.DeliveredAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		zap.L().Error("can't find order", zap.Error(err))
		return nil, err
	}
	return &order, nil
}
