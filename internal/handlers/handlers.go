package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/prozesy-ux/hero-mirror-sub002/docs"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	adminhandlers "github.com/prozesy-ux/hero-mirror-sub002/internal/handlers/admin"
	authhandlers "github.com/prozesy-ux/hero-mirror-sub002/internal/handlers/auth"
	ordershandlers "github.com/prozesy-ux/hero-mirror-sub002/internal/handlers/orders"
	wallethandlers "github.com/prozesy-ux/hero-mirror-sub002/internal/handlers/wallet"
	withdrawalhandlers "github.com/prozesy-ux/hero-mirror-sub002/internal/handlers/withdrawals"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type WalletHandler interface {
	GetWallet(w http.ResponseWriter, r *http.Request)
	Topup(w http.ResponseWriter, r *http.Request)
	GetEntries(w http.ResponseWriter, r *http.Request)
}

type OrderHandler interface {
	Purchase(w http.ResponseWriter, r *http.Request)
	GetOrders(w http.ResponseWriter, r *http.Request)
	Deliver(w http.ResponseWriter, r *http.Request)
	Confirm(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	RequestRefund(w http.ResponseWriter, r *http.Request)
}

type WithdrawalHandler interface {
	Request(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	ListWithdrawals(w http.ResponseWriter, r *http.Request)
	ApproveWithdrawal(w http.ResponseWriter, r *http.Request)
	RejectWithdrawal(w http.ResponseWriter, r *http.Request)
	ListRefunds(w http.ResponseWriter, r *http.Request)
	ApproveRefund(w http.ResponseWriter, r *http.Request)
	RejectRefund(w http.ResponseWriter, r *http.Request)
	VerifyAccount(w http.ResponseWriter, r *http.Request)
	RepairTransfer(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler       AuthHandler
	WalletHandler     WalletHandler
	OrderHandler      OrderHandler
	WithdrawalHandler WithdrawalHandler
	AdminHandler      AdminHandler
}

func New(s *service.Services) *Handlers {
	return &Handlers{
		AuthHandler:       authhandlers.New(s.AuthService),
		WalletHandler:     wallethandlers.New(s.WalletService),
		OrderHandler:      ordershandlers.New(s.SettlementService),
		WithdrawalHandler: withdrawalhandlers.New(s.WithdrawalService),
		AdminHandler:      adminhandlers.New(s.WithdrawalService, s.SettlementService, s.WalletService),
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", h.AuthHandler.Register)
		r.Post("/login", h.AuthHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware)
			r.Route("/wallet", func(r chi.Router) {
				r.Get("/", h.WalletHandler.GetWallet)
				r.Post("/topup", h.WalletHandler.Topup)
				r.Get("/entries", h.WalletHandler.GetEntries)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", h.OrderHandler.Purchase)
				r.Get("/", h.OrderHandler.GetOrders)
				r.Post("/{id}/deliver", h.OrderHandler.Deliver)
				r.Post("/{id}/confirm", h.OrderHandler.Confirm)
				r.Post("/{id}/cancel", h.OrderHandler.Cancel)
				r.Post("/{id}/refund", h.OrderHandler.RequestRefund)
			})
			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", h.WithdrawalHandler.Request)
				r.Get("/", h.WithdrawalHandler.List)
			})
		})
	})
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.AuthMiddleware, auth.RequireRole(domain.RoleAdmin))
		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", h.AdminHandler.ListWithdrawals)
			r.Post("/{id}/approve", h.AdminHandler.ApproveWithdrawal)
			r.Post("/{id}/reject", h.AdminHandler.RejectWithdrawal)
		})
		r.Route("/refunds", func(r chi.Router) {
			r.Get("/", h.AdminHandler.ListRefunds)
			r.Post("/{id}/approve", h.AdminHandler.ApproveRefund)
			r.Post("/{id}/reject", h.AdminHandler.RejectRefund)
		})
		r.Get("/accounts/{id}/verify", h.AdminHandler.VerifyAccount)
		r.Post("/transfers/repair", h.AdminHandler.RepairTransfer)
	})

	return r
}
