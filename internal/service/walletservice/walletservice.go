package walletservice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/notify"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
	ledgerrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/ledger-repo"
)

//go:generate mockgen -source=walletservice.go -destination=walletservice_mock.go -package=walletservice

type AccountRepo interface {
	GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error)
	GetByID(ctx context.Context, accountID string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, accountID string) (*domain.Account, error)
	Create(ctx context.Context, accountID, ownerID string) (*domain.Account, error)
	UpdateBalances(ctx context.Context, accountID string, balance, pending decimal.Decimal) error
}

type LedgerRepo interface {
	Append(ctx context.Context, entry *domain.LedgerEntry) error
	SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID string, limit int, cursor string) ([]domain.LedgerEntry, string, error)
}

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrAccountNotFound         = errors.New("account not found")
	ErrDuplicateIdempotencyKey = ledgerrepo.ErrDuplicateIdempotencyKey
)

// Service is the only component that appends to the ledger. Every mutation
// runs in a transaction that locks the account row, appends the entry and
// refreshes the cached balances, so a debit is a single check-and-apply
// against the current balance.
type Service struct {
	accountRepo AccountRepo
	ledgerRepo  LedgerRepo
	txManager   pg.TXManager
	notifier    notify.Notifier
}

func New(accountRepo AccountRepo, ledgerRepo LedgerRepo, txManager pg.TXManager, notifier notify.Notifier) *Service {
	return &Service{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		txManager:   txManager,
		notifier:    notifier,
	}
}

// GetOrCreateAccount resolves the owner's wallet, creating it with zero
// balance on first access.
func (s *Service) GetOrCreateAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		zap.L().Error("failed to get account", zap.Error(err))
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	account, err = s.accountRepo.Create(ctx, uuid.NewString(), ownerID)
	if err != nil {
		// Lost a creation race; the other writer's row wins.
		if existing, gerr := s.accountRepo.GetByOwner(ctx, ownerID); gerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}
	return account, nil
}

// Topup credits an external payment into the account. The payment reference
// doubles as the idempotency key, so a retried confirmation is a no-op. The
// event is emitted only when the credit lands for the first time.
func (s *Service) Topup(ctx context.Context, accountID string, amount decimal.Decimal, idempotencyKey string) error {
	if err := s.Credit(ctx, accountID, amount, domain.EntryTopup, idempotencyKey, idempotencyKey); err != nil {
		return err
	}
	s.notifier.Notify(notify.Event{Kind: notify.EventWalletTopup, ReferenceID: idempotencyKey})
	return nil
}

// Credit adds amount to the account's available balance.
func (s *Service) Credit(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.apply(ctx, accountID, amount, kind, referenceID, idempotencyKey, bucketAvailable)
}

// Debit removes amount from the available balance. Fails with
// ErrInsufficientBalance when the result would go negative; the check and the
// write happen under the same row lock.
func (s *Service) Debit(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.apply(ctx, accountID, amount.Neg(), kind, referenceID, idempotencyKey, bucketAvailable)
}

// CreditPending adds amount to seller earnings held until order completion.
func (s *Service) CreditPending(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.apply(ctx, accountID, amount, kind, referenceID, idempotencyKey, bucketPending)
}

// DebitPending reverses a held earning, e.g. on cancellation.
func (s *Service) DebitPending(ctx context.Context, accountID string, amount decimal.Decimal, kind, referenceID, idempotencyKey string) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.apply(ctx, accountID, amount.Neg(), kind, referenceID, idempotencyKey, bucketPending)
}

type bucket int

const (
	bucketAvailable bucket = iota
	bucketPending
)

func (s *Service) apply(ctx context.Context, accountID string, delta decimal.Decimal, kind, referenceID, idempotencyKey string, b bucket) error {
	if delta.IsZero() {
		return ErrInvalidAmount
	}

	return s.txManager.Begin(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}

		// Append before the balance check so a retried operation reports the
		// duplicate key instead of a spurious insufficient-balance failure.
		// A failed check rolls the whole transaction back, entry included.
		entry := &domain.LedgerEntry{
			ID:             uuid.NewString(),
			AccountID:      accountID,
			Amount:         delta,
			Kind:           kind,
			ReferenceID:    referenceID,
			IdempotencyKey: idempotencyKey,
		}
		if err := s.ledgerRepo.Append(ctx, entry); err != nil {
			return err
		}

		balance, pending := account.Balance, account.PendingBalance
		switch b {
		case bucketAvailable:
			balance = balance.Add(delta)
			if balance.IsNegative() {
				return ErrInsufficientBalance
			}
		case bucketPending:
			pending = pending.Add(delta)
			if pending.IsNegative() {
				return ErrInsufficientBalance
			}
		}

		return s.accountRepo.UpdateBalances(ctx, accountID, balance, pending)
	})
}

// ReleasePending moves a held earning into the available balance. No ledger
// entry is written: the account total is unchanged, so the sum invariant
// holds. Must run inside the caller's transaction alongside the status flip.
func (s *Service) ReleasePending(ctx context.Context, accountID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	return s.txManager.Begin(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}

		pending := account.PendingBalance.Sub(amount)
		if pending.IsNegative() {
			return ErrInsufficientBalance
		}

		return s.accountRepo.UpdateBalances(ctx, accountID, account.Balance.Add(amount), pending)
	})
}

// GetAvailableBalance returns the balance withdrawal requests may draw
// against; pending earnings are excluded.
func (s *Service) GetAvailableBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if account == nil {
		return decimal.Zero, ErrAccountNotFound
	}
	return account.Balance, nil
}

func (s *Service) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// ListEntries pages through the account's ledger, newest first. The returned
// cursor restarts the listing where the page ended.
func (s *Service) ListEntries(ctx context.Context, accountID string, limit int, cursor string) ([]domain.LedgerEntry, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.ledgerRepo.ListByAccount(ctx, accountID, limit, cursor)
}

// VerifyAccount recomputes the account total from the log and compares it to
// the cached columns. A mismatch means a half-applied mutation and needs
// manual reconciliation.
func (s *Service) VerifyAccount(ctx context.Context, accountID string) (bool, error) {
	var ok bool
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}
		sum, err := s.ledgerRepo.SumByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		ok = sum.Equal(account.Balance.Add(account.PendingBalance))
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// TransferLeg is one side of a cross-account transfer to re-run during repair.
type TransferLeg struct {
	AccountID      string
	Amount         decimal.Decimal
	Kind           string
	Pending        bool
	IdempotencyKey string
}

// RepairTransfer re-applies both legs of a transfer with their original
// idempotency keys. Each leg runs in its own transaction: a leg that already
// landed aborts only that transaction with the duplicate key, so the missing
// leg still commits. Postgres poisons a transaction after any error, which is
// why the legs must not share one.
func (s *Service) RepairTransfer(ctx context.Context, referenceID string, debit, credit TransferLeg) error {
	for _, leg := range orderLegs(debit, credit) {
		var err error
		switch {
		case leg.Pending && leg.Amount.IsPositive():
			err = s.CreditPending(ctx, leg.AccountID, leg.Amount, leg.Kind, referenceID, leg.IdempotencyKey)
		case leg.Pending:
			err = s.DebitPending(ctx, leg.AccountID, leg.Amount.Neg(), leg.Kind, referenceID, leg.IdempotencyKey)
		case leg.Amount.IsPositive():
			err = s.Credit(ctx, leg.AccountID, leg.Amount, leg.Kind, referenceID, leg.IdempotencyKey)
		default:
			err = s.Debit(ctx, leg.AccountID, leg.Amount.Neg(), leg.Kind, referenceID, leg.IdempotencyKey)
		}
		if err != nil && !errors.Is(err, ErrDuplicateIdempotencyKey) {
			return err
		}
	}
	return nil
}

// orderLegs sorts legs by account id so repeated repair runs apply in a
// stable order.
func orderLegs(a, b TransferLeg) []TransferLeg {
	if a.AccountID <= b.AccountID {
		return []TransferLeg{a, b}
	}
	return []TransferLeg{b, a}
}
