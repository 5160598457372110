package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/dto"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/settlementservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/withdrawalservice"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/utils"
)

type WithdrawalService interface {
	ListPending(ctx context.Context, adminID string) ([]domain.WithdrawalRequest, error)
	Approve(ctx context.Context, adminID, requestID, notes string) error
	Reject(ctx context.Context, adminID, requestID, notes string) error
}

type SettlementService interface {
	ListRefunds(ctx context.Context, adminID, status string) ([]domain.RefundRequest, error)
	ApproveRefund(ctx context.Context, adminID, requestID string) error
	RejectRefund(ctx context.Context, adminID, requestID string) error
}

type WalletService interface {
	VerifyAccount(ctx context.Context, accountID string) (bool, error)
	RepairTransfer(ctx context.Context, referenceID string, debit, credit walletservice.TransferLeg) error
}

type AdminHandler struct {
	withdrawalService WithdrawalService
	settlementService SettlementService
	walletService     WalletService
}

func New(withdrawalService WithdrawalService, settlementService SettlementService, walletService WalletService) *AdminHandler {
	return &AdminHandler{
		withdrawalService: withdrawalService,
		settlementService: settlementService,
		walletService:     walletService,
	}
}

// ListWithdrawals godoc
//
//	@Summary		Pending withdrawal requests
//	@Tags			Admin
//	@Produce		json
//	@Success		200	{array}		dto.WithdrawalResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/admin/withdrawals [get]
func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	requests, err := h.withdrawalService.ListPending(r.Context(), adminID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	resp := make([]dto.WithdrawalResponseDTO, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, dto.WithdrawalResponseDTO{
			ID:          req.ID,
			Amount:      req.Amount,
			Method:      req.Method,
			Destination: req.Destination,
			Status:      req.Status,
			AdminNotes:  req.AdminNotes,
			CreatedAt:   req.CreatedAt,
			ProcessedAt: req.ProcessedAt,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ApproveWithdrawal godoc
//
//	@Summary		Approve a withdrawal
//	@Description	Confirm the payout; the held funds leave the platform
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Request ID"
//	@Param			request	body	dto.ProcessRequestDTO	false	"Admin notes"
//	@Success		200	{object}	utils.Response
//	@Failure		404	{object}	utils.Response	"Request not found"
//	@Failure		409	{object}	utils.Response	"Already processed"
//	@Security		BearerAuth
//	@Router			/api/admin/withdrawals/{id}/approve [post]
func (h *AdminHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.withdrawalService.Approve(r.Context(), adminID, chi.URLParam(r, "id"), readNotes(r.Body))
	h.respondWithdrawal(w, err, "Withdrawal approved")
}

// RejectWithdrawal godoc
//
//	@Summary		Reject a withdrawal
//	@Description	Return the held amount to the user's balance
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Request ID"
//	@Param			request	body	dto.ProcessRequestDTO	false	"Admin notes"
//	@Success		200	{object}	utils.Response
//	@Failure		404	{object}	utils.Response	"Request not found"
//	@Failure		409	{object}	utils.Response	"Already processed"
//	@Security		BearerAuth
//	@Router			/api/admin/withdrawals/{id}/reject [post]
func (h *AdminHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.withdrawalService.Reject(r.Context(), adminID, chi.URLParam(r, "id"), readNotes(r.Body))
	h.respondWithdrawal(w, err, "Withdrawal rejected")
}

// ListRefunds godoc
//
//	@Summary		Refund requests by status
//	@Tags			Admin
//	@Produce		json
//	@Param			status	query	string	false	"Request status"	default(pending)
//	@Success		200	{array}		dto.RefundResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/admin/refunds [get]
func (h *AdminHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domain.RequestPending
	}
	requests, err := h.settlementService.ListRefunds(r.Context(), adminID, status)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	resp := make([]dto.RefundResponseDTO, 0, len(requests))
	for _, req := range requests {
		resp = append(resp, dto.RefundResponseDTO{
			ID:          req.ID,
			OrderID:     req.OrderID,
			Amount:      req.Amount,
			Status:      req.Status,
			Reason:      req.Reason,
			CreatedAt:   req.CreatedAt,
			ProcessedAt: req.ProcessedAt,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// ApproveRefund godoc
//
//	@Summary		Approve a refund
//	@Description	Credit the buyer the full price and debit the seller's earning
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path	string	true	"Request ID"
//	@Success		200	{object}	utils.Response
//	@Failure		404	{object}	utils.Response	"Request not found"
//	@Failure		409	{object}	utils.Response	"Already processed or state conflict"
//	@Failure		422	{object}	utils.Response	"Seller balance insufficient"
//	@Security		BearerAuth
//	@Router			/api/admin/refunds/{id}/approve [post]
func (h *AdminHandler) ApproveRefund(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.settlementService.ApproveRefund(r.Context(), adminID, chi.URLParam(r, "id"))
	h.respondRefund(w, err, "Refund approved")
}

// RejectRefund godoc
//
//	@Summary		Reject a refund
//	@Description	Close the request and return the order to completed
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path	string	true	"Request ID"
//	@Success		200	{object}	utils.Response
//	@Failure		404	{object}	utils.Response	"Request not found"
//	@Failure		409	{object}	utils.Response	"Already processed"
//	@Security		BearerAuth
//	@Router			/api/admin/refunds/{id}/reject [post]
func (h *AdminHandler) RejectRefund(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.settlementService.RejectRefund(r.Context(), adminID, chi.URLParam(r, "id"))
	h.respondRefund(w, err, "Refund rejected")
}

// VerifyAccount godoc
//
//	@Summary		Reconcile an account against its ledger
//	@Description	Recompute the account total from the log and compare it to the cached balances
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path	string	true	"Account ID"
//	@Success		200	{object}	dto.VerifyResponseDTO
//	@Failure		404	{object}	utils.Response	"Account not found"
//	@Security		BearerAuth
//	@Router			/api/admin/accounts/{id}/verify [get]
func (h *AdminHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	_, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	accountID := chi.URLParam(r, "id")
	consistent, err := h.walletService.VerifyAccount(r.Context(), accountID)
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, dto.VerifyResponseDTO{
			AccountID:  accountID,
			Consistent: consistent,
		})
	case errors.Is(err, walletservice.ErrAccountNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Account not found")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// RepairTransfer godoc
//
//	@Summary		Re-apply a half-applied transfer
//	@Description	Re-run both legs with their original idempotency keys; legs that already landed are skipped
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.RepairRequestDTO	true	"Transfer legs to re-apply"
//	@Success		200	{object}	utils.Response
//	@Failure		400	{object}	utils.Response	"Invalid request body"
//	@Failure		404	{object}	utils.Response	"Account not found"
//	@Failure		422	{object}	utils.Response	"Invalid amount"
//	@Security		BearerAuth
//	@Router			/api/admin/transfers/repair [post]
func (h *AdminHandler) RepairTransfer(w http.ResponseWriter, r *http.Request) {
	_, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.RepairRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ReferenceID == "" || req.Debit.AccountID == "" || req.Credit.AccountID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "reference_id and both legs are required")
		return
	}

	err := h.walletService.RepairTransfer(r.Context(), req.ReferenceID, repairLeg(req.Debit), repairLeg(req.Credit))
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: "Transfer repaired"})
	case errors.Is(err, walletservice.ErrAccountNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, walletservice.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid amount")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func repairLeg(leg dto.TransferLegDTO) walletservice.TransferLeg {
	return walletservice.TransferLeg{
		AccountID:      leg.AccountID,
		Amount:         leg.Amount,
		Kind:           leg.Kind,
		Pending:        leg.Pending,
		IdempotencyKey: leg.IdempotencyKey,
	}
}

func (h *AdminHandler) respondWithdrawal(w http.ResponseWriter, err error, message string) {
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: message})
	case errors.Is(err, withdrawalservice.ErrRequestNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Request not found")
	case errors.Is(err, withdrawalservice.ErrAlreadyProcessed):
		utils.RespondWithError(w, http.StatusConflict, "Request already processed")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *AdminHandler) respondRefund(w http.ResponseWriter, err error, message string) {
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: message})
	case errors.Is(err, settlementservice.ErrRequestNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Request not found")
	case errors.Is(err, settlementservice.ErrAlreadyProcessed):
		utils.RespondWithError(w, http.StatusConflict, "Request already processed")
	case errors.Is(err, settlementservice.ErrOrderStateConflict):
		utils.RespondWithError(w, http.StatusConflict, "Order state conflict")
	case errors.Is(err, settlementservice.ErrRefundExceedsBalance):
		utils.RespondWithError(w, http.StatusUnprocessableEntity, "Seller balance insufficient for refund")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// readNotes tolerates an empty body: the notes field is optional.
func readNotes(body io.Reader) string {
	var req dto.ProcessRequestDTO
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return ""
	}
	return req.Notes
}
