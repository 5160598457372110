package service

import (
	"github.com/shopspring/decimal"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/notify"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/pg"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/repo"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/authservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/settlementservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/withdrawalservice"
	pkgauth "github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
)

type Services struct {
	AuthService       *authservice.Service
	WalletService     *walletservice.Service
	SettlementService *settlementservice.Service
	WithdrawalService *withdrawalservice.Service
}

func New(repo *repo.Repositories, txManager pg.TXManager, notifier notify.Notifier, commissionRate decimal.Decimal) *Services {
	walletService := walletservice.New(repo.AccountRepo, repo.LedgerRepo, txManager, notifier)
	settlementService := settlementservice.New(repo.OrderRepo, repo.RefundRepo, walletService, txManager, notifier, commissionRate)
	withdrawalService := withdrawalservice.New(repo.WithdrawalRepo, walletService, txManager, notifier)
	authService := authservice.New(repo.UserRepo, walletService, &pkgauth.HashService{}, &pkgauth.JWTService{})

	return &Services{
		AuthService:       authService,
		WalletService:     walletService,
		SettlementService: settlementService,
		WithdrawalService: withdrawalService,
	}
}
