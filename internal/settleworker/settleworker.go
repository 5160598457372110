// Package settleworker auto-completes delivered orders whose confirmation
// window has lapsed without the buyer confirming or disputing.
package settleworker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/config"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/settlementservice"
)

//go:generate mockgen -source=settleworker.go -destination=settleworker_mock.go -package=settleworker

type Settler interface {
	ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
	AutoComplete(ctx context.Context, orderID string) error
}

var processingOrders sync.Map

type Service struct {
	settler        Settler
	window         time.Duration
	limit          int
	workerPool     WorkerPoolI
	updateInterval time.Duration
}

func New(cfg *config.Config, settler Settler) *Service {
	return &Service{
		settler:        settler,
		window:         cfg.CompleteAfter,
		limit:          1000,
		workerPool:     NewWorkerPool(10),
		updateInterval: time.Second * 5,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Settle worker started", zap.Duration("window", s.window))
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping settle worker")
			return
		case <-ticker.C:
			s.processOrders(ctx)
		}
	}
}

func (s *Service) processOrders(ctx context.Context) {
	cutoff := time.Now().Add(-s.window)
	orders, err := s.settler.ListOverdue(ctx, cutoff, s.limit)
	if err != nil {
		zap.L().Error("Failed to fetch overdue orders", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, order := range orders {
		order := order

		if _, loaded := processingOrders.LoadOrStore(order.ID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer processingOrders.Delete(order.ID)
				return s.handleOrder(ctx, order)
			})
			if err != nil {
				processingOrders.Delete(order.ID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error processing overdue orders", zap.Error(err))
	}
}

func (s *Service) handleOrder(ctx context.Context, order domain.Order) error {
	err := s.settler.AutoComplete(ctx, order.ID)
	switch {
	case err == nil:
		zap.L().Info("Order auto-completed", zap.String("orderID", order.ID))
		return nil
	case errors.Is(err, settlementservice.ErrOrderStateConflict),
		errors.Is(err, settlementservice.ErrOrderNotFound):
		// Lost the race to the buyer confirming, cancelling or disputing.
		zap.L().Info("Order moved on before auto-completion", zap.String("orderID", order.ID))
		return nil
	default:
		return err
	}
}
