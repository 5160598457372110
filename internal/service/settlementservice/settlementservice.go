package settlementservice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/commission"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/notify"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
	refundrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/refund-repo"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
)

//go:generate mockgen -source=settlementservice.go -destination=settlementservice_mock.go -package=settlementservice

type OrderRepo interface {
	Save(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, orderID string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID, expected, next string) (bool, error)
	MarkDelivered(ctx context.Context, orderID string, deliveredAt time.Time) (bool, error)
	FindDeliveredBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
}

type RefundRepo interface {
	Create(ctx context.Context, refund *domain.RefundRequest) (*domain.RefundRequest, error)
	GetByIDForUpdate(ctx context.Context, requestID string) (*domain.RefundRequest, error)
	ListByStatus(ctx context.Context, status string) ([]domain.RefundRequest, error)
	MarkProcessed(ctx context.Context, requestID, status string, processedAt time.Time) (bool, error)
}

// Wallet is the only path to the ledger; the settlement machine never writes
// balances directly.
type Wallet interface {
	GetOrCreateAccount(ctx context.Context, ownerID string) (*domain.Account, error)
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error
	Debit(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error
	CreditPending(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error
	DebitPending(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error
	ReleasePending(ctx context.Context, accountID string, amount decimal.Decimal) error
}

var (
	ErrUnauthorized           = errors.New("caller identity required")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderStateConflict     = errors.New("order is not in a state allowing this transition")
	ErrNotOrderParticipant    = errors.New("caller is not a participant of this order")
	ErrRequestNotFound        = errors.New("refund request not found")
	ErrAlreadyProcessed       = errors.New("request already processed")
	ErrRefundExceedsBalance   = errors.New("seller balance insufficient for refund")
	ErrRefundAlreadyRequested = refundrepo.ErrAlreadyRequested
)

type Service struct {
	orderRepo      OrderRepo
	refundRepo     RefundRepo
	wallet         Wallet
	txManager      pg.TXManager
	notifier       notify.Notifier
	commissionRate decimal.Decimal
}

func New(orderRepo OrderRepo, refundRepo RefundRepo, wallet Wallet, txManager pg.TXManager, notifier notify.Notifier, commissionRate decimal.Decimal) *Service {
	return &Service{
		orderRepo:      orderRepo,
		refundRepo:     refundRepo,
		wallet:         wallet,
		txManager:      txManager,
		notifier:       notifier,
		commissionRate: commissionRate,
	}
}

type PurchaseInput struct {
	ProductID string
	SellerID  string
	Amount    decimal.Decimal
}

// Purchase creates a pending order, debits the buyer and holds the seller's
// earning as pending. Both ledger legs and the order row commit together; if
// either leg fails nothing is settled.
func (s *Service) Purchase(ctx context.Context, buyerID string, in PurchaseInput) (*domain.Order, error) {
	if buyerID == "" {
		return nil, ErrUnauthorized
	}

	buyerAcc, err := s.wallet.GetOrCreateAccount(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	sellerAcc, err := s.wallet.GetOrCreateAccount(ctx, in.SellerID)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		BuyerID:       buyerID,
		SellerID:      in.SellerID,
		ProductID:     in.ProductID,
		Amount:        in.Amount,
		SellerEarning: commission.SellerEarning(in.Amount, s.commissionRate),
		Status:        domain.OrderPending,
	}

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.orderRepo.Save(ctx, order); err != nil {
			return err
		}
		return s.inLockOrder(ctx,
			buyerAcc.ID, func(ctx context.Context) error {
				return s.wallet.Debit(ctx, buyerAcc.ID, order.Amount, domain.EntryPurchaseDebit, order.ID, order.ID+":buyer_debit")
			},
			sellerAcc.ID, func(ctx context.Context) error {
				if !order.SellerEarning.IsPositive() {
					return nil
				}
				return s.wallet.CreditPending(ctx, sellerAcc.ID, order.SellerEarning, domain.EntryPurchaseCredit, order.ID, order.ID+":seller_credit")
			},
		)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventOrderCreated, ReferenceID: order.ID, UserID: buyerID})
	return order, nil
}

// MarkDelivered is informational; no money moves.
func (s *Service) MarkDelivered(ctx context.Context, sellerID, orderID string) error {
	if sellerID == "" {
		return ErrUnauthorized
	}
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}
	if order.SellerID != sellerID {
		return ErrNotOrderParticipant
	}

	ok, err := s.orderRepo.MarkDelivered(ctx, orderID, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderStateConflict
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventOrderDelivered, ReferenceID: orderID, UserID: sellerID})
	return nil
}

// Complete is the buyer's confirmation: the seller's held earning becomes
// withdrawable, atomically with the status flip.
func (s *Service) Complete(ctx context.Context, buyerID, orderID string) error {
	if buyerID == "" {
		return ErrUnauthorized
	}
	return s.complete(ctx, buyerID, orderID)
}

// AutoComplete is invoked by the settle worker once the confirmation window
// for a delivered order has lapsed.
func (s *Service) AutoComplete(ctx context.Context, orderID string) error {
	return s.complete(ctx, "", orderID)
}

func (s *Service) complete(ctx context.Context, buyerID, orderID string) error {
	var sellerID string
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if buyerID != "" && order.BuyerID != buyerID {
			return ErrNotOrderParticipant
		}
		if order.Status != domain.OrderDelivered {
			return ErrOrderStateConflict
		}
		sellerID = order.SellerID

		if order.SellerEarning.IsPositive() {
			sellerAcc, err := s.wallet.GetOrCreateAccount(ctx, order.SellerID)
			if err != nil {
				return err
			}
			if err := s.wallet.ReleasePending(ctx, sellerAcc.ID, order.SellerEarning); err != nil {
				return err
			}
		}

		ok, err := s.orderRepo.UpdateStatus(ctx, orderID, domain.OrderDelivered, domain.OrderCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStateConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventOrderCompleted, ReferenceID: orderID, UserID: sellerID})
	return nil
}

// Cancel reverses a purchase before completion: the buyer is made whole and
// the seller's pending hold is released back out of the ledger.
func (s *Service) Cancel(ctx context.Context, callerID, orderID string) error {
	if callerID == "" {
		return ErrUnauthorized
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.BuyerID != callerID && order.SellerID != callerID {
			return ErrNotOrderParticipant
		}
		// Settled orders and orders under refund review are past cancelling.
		if order.IsTerminal() || order.Status == domain.OrderRefundPending {
			return ErrOrderStateConflict
		}

		buyerAcc, err := s.wallet.GetOrCreateAccount(ctx, order.BuyerID)
		if err != nil {
			return err
		}
		sellerAcc, err := s.wallet.GetOrCreateAccount(ctx, order.SellerID)
		if err != nil {
			return err
		}

		err = s.inLockOrder(ctx,
			buyerAcc.ID, func(ctx context.Context) error {
				return s.wallet.Credit(ctx, buyerAcc.ID, order.Amount, domain.EntryRefundCredit, order.ID, order.ID+":cancel_credit")
			},
			sellerAcc.ID, func(ctx context.Context) error {
				if !order.SellerEarning.IsPositive() {
					return nil
				}
				return s.wallet.DebitPending(ctx, sellerAcc.ID, order.SellerEarning, domain.EntryRefundDebit, order.ID, order.ID+":cancel_debit")
			},
		)
		if err != nil {
			return err
		}

		ok, err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, domain.OrderCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStateConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventOrderCancelled, ReferenceID: orderID, UserID: callerID})
	return nil
}

// RequestRefund moves a delivered or completed order into refund_pending and
// files the request for admin review. A delivered order is settled first
// (pending released) so a later approval always debits the seller's available
// balance.
func (s *Service) RequestRefund(ctx context.Context, buyerID, orderID, reason string) (*domain.RefundRequest, error) {
	if buyerID == "" {
		return nil, ErrUnauthorized
	}

	var request *domain.RefundRequest
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		order, err := s.orderRepo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.BuyerID != buyerID {
			return ErrNotOrderParticipant
		}
		if order.Status != domain.OrderDelivered && order.Status != domain.OrderCompleted {
			return ErrOrderStateConflict
		}

		if order.Status == domain.OrderDelivered && order.SellerEarning.IsPositive() {
			sellerAcc, err := s.wallet.GetOrCreateAccount(ctx, order.SellerID)
			if err != nil {
				return err
			}
			if err := s.wallet.ReleasePending(ctx, sellerAcc.ID, order.SellerEarning); err != nil {
				return err
			}
		}

		ok, err := s.orderRepo.UpdateStatus(ctx, orderID, order.Status, domain.OrderRefundPending)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStateConflict
		}

		request, err = s.refundRepo.Create(ctx, &domain.RefundRequest{
			ID:      uuid.NewString(),
			OrderID: orderID,
			BuyerID: buyerID,
			Amount:  order.Amount,
			Status:  domain.RequestPending,
			Reason:  reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventRefundRequested, ReferenceID: orderID, UserID: buyerID})
	return request, nil
}

// ApproveRefund credits the buyer the full order amount and debits the seller
// its earning. When the seller's balance cannot cover the debit the whole
// transition is rejected and surfaced as ErrRefundExceedsBalance for manual
// reconciliation, never as a silent partial refund.
func (s *Service) ApproveRefund(ctx context.Context, adminID, requestID string) error {
	if adminID == "" {
		return ErrUnauthorized
	}

	var orderID string
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		request, err := s.refundRepo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrRequestNotFound
		}
		if request.Status != domain.RequestPending {
			return ErrAlreadyProcessed
		}
		orderID = request.OrderID

		order, err := s.orderRepo.GetByIDForUpdate(ctx, request.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != domain.OrderRefundPending {
			return ErrOrderStateConflict
		}

		buyerAcc, err := s.wallet.GetOrCreateAccount(ctx, order.BuyerID)
		if err != nil {
			return err
		}
		sellerAcc, err := s.wallet.GetOrCreateAccount(ctx, order.SellerID)
		if err != nil {
			return err
		}

		// The refund is applied at most once per order: both legs carry keys
		// derived from the order id.
		err = s.inLockOrder(ctx,
			buyerAcc.ID, func(ctx context.Context) error {
				return s.wallet.Credit(ctx, buyerAcc.ID, order.Amount, domain.EntryRefundCredit, order.ID, "refund:"+order.ID+":credit")
			},
			sellerAcc.ID, func(ctx context.Context) error {
				if !order.SellerEarning.IsPositive() {
					return nil
				}
				err := s.wallet.Debit(ctx, sellerAcc.ID, order.SellerEarning, domain.EntryRefundDebit, order.ID, "refund:"+order.ID+":debit")
				if errors.Is(err, walletservice.ErrInsufficientBalance) {
					return ErrRefundExceedsBalance
				}
				return err
			},
		)
		if err != nil {
			return err
		}

		ok, err := s.orderRepo.UpdateStatus(ctx, order.ID, domain.OrderRefundPending, domain.OrderRefunded)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStateConflict
		}

		ok, err = s.refundRepo.MarkProcessed(ctx, requestID, domain.RequestApproved, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyProcessed
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventOrderRefunded, ReferenceID: orderID, UserID: adminID})
	return nil
}

// RejectRefund closes the request and puts the order back to completed.
func (s *Service) RejectRefund(ctx context.Context, adminID, requestID string) error {
	if adminID == "" {
		return ErrUnauthorized
	}

	var orderID string
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		request, err := s.refundRepo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrRequestNotFound
		}
		if request.Status != domain.RequestPending {
			return ErrAlreadyProcessed
		}
		orderID = request.OrderID

		ok, err := s.refundRepo.MarkProcessed(ctx, requestID, domain.RequestRejected, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyProcessed
		}

		ok, err = s.orderRepo.UpdateStatus(ctx, request.OrderID, domain.OrderRefundPending, domain.OrderCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStateConflict
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventRefundRejected, ReferenceID: orderID, UserID: adminID})
	return nil
}

func (s *Service) GetOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		zap.L().Error("failed to get orders", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (s *Service) ListRefunds(ctx context.Context, adminID, status string) ([]domain.RefundRequest, error) {
	if adminID == "" {
		return nil, ErrUnauthorized
	}
	return s.refundRepo.ListByStatus(ctx, status)
}

// ListOverdue returns delivered orders whose confirmation window lapsed
// before cutoff.
func (s *Service) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	return s.orderRepo.FindDeliveredBefore(ctx, cutoff, limit)
}

// inLockOrder runs the two account mutations ordered by account id so
// concurrent transfers always acquire row locks in the same order.
func (s *Service) inLockOrder(ctx context.Context, accA string, fnA func(context.Context) error, accB string, fnB func(context.Context) error) error {
	first, second := fnA, fnB
	if accB < accA {
		first, second = fnB, fnA
	}
	if err := first(ctx); err != nil {
		return err
	}
	return second(ctx)
}
