package walletservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/notify"
)

// memStore is an in-memory stand-in for the account and ledger repositories.
// Its txManager serializes whole operations the way the database row lock
// does, and discards uncommitted writes on error like a rollback.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	entries  []domain.LedgerEntry
	keys     map[string]struct{}

	// staged writes of the transaction in flight
	staged []domain.LedgerEntry
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[string]*domain.Account),
		keys:     make(map[string]struct{}),
	}
}

type memTxKey struct{}

func (m *memStore) Begin(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	ctx = context.WithValue(ctx, memTxKey{}, struct{}{})

	m.mu.Lock()
	defer m.mu.Unlock()

	m.staged = nil
	snapshot := make(map[string]domain.Account, len(m.accounts))
	for id, acc := range m.accounts {
		snapshot[id] = *acc
	}

	if err := fn(ctx); err != nil {
		for id := range m.accounts {
			restored := snapshot[id]
			m.accounts[id] = &restored
		}
		for _, e := range m.staged {
			delete(m.keys, e.AccountID+"|"+e.IdempotencyKey)
		}
		return err
	}
	m.entries = append(m.entries, m.staged...)
	return nil
}

func (m *memStore) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	for _, acc := range m.accounts {
		if acc.OwnerID == ownerID {
			copied := *acc
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByID(ctx context.Context, accountID string) (*domain.Account, error) {
	acc, ok := m.accounts[accountID]
	if !ok {
		return nil, nil
	}
	copied := *acc
	return &copied, nil
}

func (m *memStore) GetByIDForUpdate(ctx context.Context, accountID string) (*domain.Account, error) {
	return m.GetByID(ctx, accountID)
}

func (m *memStore) Create(ctx context.Context, accountID, ownerID string) (*domain.Account, error) {
	acc := &domain.Account{ID: accountID, OwnerID: ownerID, Balance: decimal.Zero, PendingBalance: decimal.Zero}
	m.accounts[accountID] = acc
	copied := *acc
	return &copied, nil
}

func (m *memStore) UpdateBalances(ctx context.Context, accountID string, balance, pending decimal.Decimal) error {
	acc, ok := m.accounts[accountID]
	if !ok {
		return errors.New("unknown account")
	}
	acc.Balance = balance
	acc.PendingBalance = pending
	return nil
}

func (m *memStore) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	key := entry.AccountID + "|" + entry.IdempotencyKey
	if _, dup := m.keys[key]; dup {
		return ErrDuplicateIdempotencyKey
	}
	m.keys[key] = struct{}{}
	m.staged = append(m.staged, *entry)
	return nil
}

func (m *memStore) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (m *memStore) ListByAccount(ctx context.Context, accountID string, limit int, cursor string) ([]domain.LedgerEntry, string, error) {
	return nil, "", nil
}

func seedAccount(t *testing.T, store *memStore, service *Service, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()
	acc, err := service.GetOrCreateAccount(ctx, "owner-1")
	require.NoError(t, err)
	require.NoError(t, service.Credit(ctx, acc.ID, decimal.RequireFromString(balance), domain.EntryTopup, "seed", "seed"))
	return acc
}

func TestNoOverdraftUnderConcurrentDebits(t *testing.T) {
	store := newMemStore()
	service := New(store, store, store, notify.New(""))
	acc := seedAccount(t, store, service, "100")

	const workers = 20
	debit := decimal.RequireFromString("30")

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- service.Debit(context.Background(), acc.ID, debit,
				domain.EntryPurchaseDebit, fmt.Sprintf("order-%d", i), fmt.Sprintf("order-%d:debit", i))
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// floor(100 / 30) debits fit; everything else must fail cleanly.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, insufficient)

	final, err := store.GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, final.Balance.Equal(decimal.RequireFromString("10")), "final balance %s", final.Balance)
	assert.False(t, final.Balance.IsNegative())

	sum, err := store.SumByAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, sum.Equal(final.Balance.Add(final.PendingBalance)))
}

func TestDebitIdempotence(t *testing.T) {
	store := newMemStore()
	service := New(store, store, store, notify.New(""))
	acc := seedAccount(t, store, service, "100")

	amount := decimal.RequireFromString("40")
	err := service.Debit(context.Background(), acc.ID, amount, domain.EntryWithdrawalHold, "wd-1", "wd-1:hold")
	require.NoError(t, err)

	// The retry carries the same key and must not double-apply.
	err = service.Debit(context.Background(), acc.ID, amount, domain.EntryWithdrawalHold, "wd-1", "wd-1:hold")
	assert.ErrorIs(t, err, ErrDuplicateIdempotencyKey)

	final, err := store.GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, final.Balance.Equal(decimal.RequireFromString("60")), "final balance %s", final.Balance)
}

func TestLedgerMatchesBalanceAfterMixedTraffic(t *testing.T) {
	store := newMemStore()
	service := New(store, store, store, notify.New(""))
	acc := seedAccount(t, store, service, "200")

	ctx := context.Background()
	require.NoError(t, service.Debit(ctx, acc.ID, decimal.RequireFromString("50"), domain.EntryPurchaseDebit, "o1", "o1:debit"))
	require.NoError(t, service.CreditPending(ctx, acc.ID, decimal.RequireFromString("42.5"), domain.EntryPurchaseCredit, "o2", "o2:credit"))
	require.NoError(t, service.ReleasePending(ctx, acc.ID, decimal.RequireFromString("42.5")))
	require.NoError(t, service.Credit(ctx, acc.ID, decimal.RequireFromString("10"), domain.EntryWithdrawalReversal, "wd-9", "wd-9:reversal"))

	ok, err := service.VerifyAccount(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}
