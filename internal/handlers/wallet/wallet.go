package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/dto"
	ledgerrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/ledger-repo"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/utils"
)

type Service interface {
	GetOrCreateAccount(ctx context.Context, ownerID string) (*domain.Account, error)
	Topup(ctx context.Context, accountID string, amount decimal.Decimal, idempotencyKey string) error
	ListEntries(ctx context.Context, accountID string, limit int, cursor string) ([]domain.LedgerEntry, string, error)
}

type WalletHandler struct {
	walletService Service
}

func New(walletService Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet godoc
//
//	@Summary		Get wallet balances
//	@Description	Available and pending balance of the authenticated user's account
//	@Tags			Wallet
//	@Produce		json
//	@Success		200	{object}	dto.WalletResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/user/wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	account, err := h.walletService.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WalletResponseDTO{
		AccountID: account.ID,
		Balance:   account.Balance,
		Pending:   account.PendingBalance,
	})
}

// Topup godoc
//
//	@Summary		Top up the wallet
//	@Description	Credit the account with an external payment. A retried key replays as a no-op success.
//	@Tags			Wallet
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.TopupRequestDTO	true	"Topup request body"
//	@Success		200		{object}	dto.WalletResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/user/wallet/topup [post]
func (h *WalletHandler) Topup(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.TopupRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Idempotency key is required")
		return
	}
	account, err := h.walletService.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	err = h.walletService.Topup(r.Context(), account.ID, req.Amount, req.IdempotencyKey)
	// A replayed key means this topup already committed; answer with the
	// current balances instead of an error so client retries converge.
	if err != nil && !errors.Is(err, walletservice.ErrDuplicateIdempotencyKey) {
		if errors.Is(err, walletservice.ErrInvalidAmount) {
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid amount")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	account, err = h.walletService.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.WalletResponseDTO{
		AccountID: account.ID,
		Balance:   account.Balance,
		Pending:   account.PendingBalance,
	})
}

// GetEntries godoc
//
//	@Summary		List ledger entries
//	@Description	Page through the account's ledger, newest first
//	@Tags			Wallet
//	@Produce		json
//	@Param			limit	query		int		false	"Page size (max 100)"
//	@Param			cursor	query		string	false	"Opaque cursor from a previous page"
//	@Success		200		{object}	dto.LedgerPageDTO
//	@Failure		400		{object}	utils.Response	"Bad cursor"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/user/wallet/entries [get]
func (h *WalletHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	account, err := h.walletService.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, next, err := h.walletService.ListEntries(r.Context(), account.ID, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		if errors.Is(err, ledgerrepo.ErrBadCursor) {
			utils.RespondWithError(w, http.StatusBadRequest, "Bad cursor")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	page := dto.LedgerPageDTO{NextCursor: next, Entries: make([]dto.LedgerEntryDTO, 0, len(entries))}
	for _, e := range entries {
		page.Entries = append(page.Entries, dto.LedgerEntryDTO{
			ID:          e.ID,
			Amount:      e.Amount,
			Kind:        e.Kind,
			ReferenceID: e.ReferenceID,
			CreatedAt:   e.CreatedAt,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}
