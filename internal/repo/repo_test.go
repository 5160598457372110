package repo

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	accountrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/account-repo"
	ledgerrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/ledger-repo"
	orderrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/order-repo"
	refundrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/refund-repo"
	userrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/user-repo"
	withdrawalrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/withdrawal-repo"
)

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func TestNew(t *testing.T) {
	repo, mock := NewMock(t)

	assert.NotNil(t, repo.UserRepo)
	assert.NotNil(t, repo.AccountRepo)
	assert.NotNil(t, repo.LedgerRepo)
	assert.NotNil(t, repo.OrderRepo)
	assert.NotNil(t, repo.RefundRepo)
	assert.NotNil(t, repo.WithdrawalRepo)

	assert.IsType(t, &userrepo.Repository{}, repo.UserRepo)
	assert.IsType(t, &accountrepo.Repository{}, repo.AccountRepo)
	assert.IsType(t, &ledgerrepo.Repository{}, repo.LedgerRepo)
	assert.IsType(t, &orderrepo.Repository{}, repo.OrderRepo)
	assert.IsType(t, &refundrepo.Repository{}, repo.RefundRepo)
	assert.IsType(t, &withdrawalrepo.Repository{}, repo.WithdrawalRepo)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}
