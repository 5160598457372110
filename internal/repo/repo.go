package repo

import (
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
	accountrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/account-repo"
	ledgerrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/ledger-repo"
	orderrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/order-repo"
	refundrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/refund-repo"
	userrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/user-repo"
	withdrawalrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/withdrawal-repo"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/authservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/settlementservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/withdrawalservice"
)

type Repositories struct {
	UserRepo       authservice.Repo
	AccountRepo    walletservice.AccountRepo
	LedgerRepo     walletservice.LedgerRepo
	OrderRepo      settlementservice.OrderRepo
	RefundRepo     settlementservice.RefundRepo
	WithdrawalRepo withdrawalservice.WithdrawalRepo
}

func New(conn pg.Database) *Repositories {
	return &Repositories{
		UserRepo:       userrepo.New(conn),
		AccountRepo:    accountrepo.New(conn),
		LedgerRepo:     ledgerrepo.New(conn),
		OrderRepo:      orderrepo.New(conn),
		RefundRepo:     refundrepo.New(conn),
		WithdrawalRepo: withdrawalrepo.New(conn),
	}
}
