package withdrawalservice

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/notify"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
)

//go:generate mockgen -source=withdrawalservice.go -destination=withdrawalservice_mock.go -package=withdrawalservice

type WithdrawalRepo interface {
	Create(ctx context.Context, withdrawal *domain.WithdrawalRequest) (*domain.WithdrawalRequest, error)
	GetByID(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error)
	GetByIDForUpdate(ctx context.Context, requestID string) (*domain.WithdrawalRequest, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.WithdrawalRequest, error)
	ListByStatus(ctx context.Context, status string) ([]domain.WithdrawalRequest, error)
	MarkProcessed(ctx context.Context, requestID, status, adminNotes string, processedAt time.Time) (bool, error)
}

type Wallet interface {
	GetOrCreateAccount(ctx context.Context, ownerID string) (*domain.Account, error)
	Credit(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error
	Debit(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error
}

var (
	ErrUnauthorized     = errors.New("caller identity required")
	ErrRequestNotFound  = errors.New("withdrawal request not found")
	ErrAlreadyProcessed = errors.New("request already processed")
	ErrNotRequestOwner  = errors.New("caller does not own this request")
	ErrBadMethod        = errors.New("unknown withdrawal method")
)

type Service struct {
	withdrawalRepo WithdrawalRepo
	wallet         Wallet
	txManager      pg.TXManager
	notifier       notify.Notifier
}

func New(withdrawalRepo WithdrawalRepo, wallet Wallet, txManager pg.TXManager, notifier notify.Notifier) *Service {
	return &Service{
		withdrawalRepo: withdrawalRepo,
		wallet:         wallet,
		txManager:      txManager,
		notifier:       notifier,
	}
}

type RequestInput struct {
	Amount      decimal.Decimal
	Method      string
	Destination string
}

// Request holds the amount immediately: the debit and the request row commit
// together, so the funds are off the balance for the entire review. A rejected
// request restores them with a separate reversal entry.
func (s *Service) Request(ctx context.Context, userID string, in RequestInput) (*domain.WithdrawalRequest, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if in.Method != domain.WithdrawalMethodCard && in.Method != domain.WithdrawalMethodBank {
		return nil, ErrBadMethod
	}

	account, err := s.wallet.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	request := &domain.WithdrawalRequest{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Amount:      in.Amount,
		Method:      in.Method,
		Destination: in.Destination,
		Status:      domain.RequestPending,
	}

	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		if err := s.wallet.Debit(ctx, account.ID, in.Amount, domain.EntryWithdrawalHold, request.ID, request.ID+":hold"); err != nil {
			return err
		}
		request, err = s.withdrawalRepo.Create(ctx, request)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventWithdrawalCreated, ReferenceID: request.ID, UserID: userID})
	return request, nil
}

// Approve confirms the payout. The hold already removed the funds, so
// approval touches no balances.
func (s *Service) Approve(ctx context.Context, adminID, requestID, notes string) error {
	if adminID == "" {
		return ErrUnauthorized
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		request, err := s.withdrawalRepo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrRequestNotFound
		}
		if request.Status != domain.RequestPending {
			return ErrAlreadyProcessed
		}

		ok, err := s.withdrawalRepo.MarkProcessed(ctx, requestID, domain.RequestApproved, notes, time.Now())
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

	s.notifier.Notify(notify.Event{Kind: notify.EventWithdrawalApproved, ReferenceID: requestID, UserID: adminID})
	return nil
}

// Reject returns the held amount to the account as a reversal entry,
// atomically with the status flip.
func (s *Service) Reject(ctx context.Context, adminID, requestID, notes string) error {
	if adminID == "" {
		return ErrUnauthorized
	}

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		request, err := s.withdrawalRepo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if request == nil {
			return ErrRequestNotFound
		}
		if request.Status != domain.RequestPending {
			return ErrAlreadyProcessed
		}

		ok, err := s.withdrawalRepo.MarkProcessed(ctx, requestID, domain.RequestRejected, notes, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyProcessed
		}

		return s.wallet.Credit(ctx, request.AccountID, request.Amount,
			domain.EntryWithdrawalReversal, request.ID, request.ID+":reversal")
	})
	if err != nil {
		return err
	}

	s.notifier.Notify(notify.Event{Kind: notify.EventWithdrawalRejected, ReferenceID: requestID, UserID: adminID})
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.WithdrawalRequest, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	account, err := s.wallet.GetOrCreateAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.withdrawalRepo.ListByAccount(ctx, account.ID)
}

func (s *Service) ListPending(ctx context.Context, adminID string) ([]domain.WithdrawalRequest, error) {
	if adminID == "" {
		return nil, ErrUnauthorized
	}
	return s.withdrawalRepo.ListByStatus(ctx, domain.RequestPending)
}
