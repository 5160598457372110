package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/dto"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/settlementservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/utils"
)

type Service interface {
	Purchase(ctx context.Context, buyerID string, in settlementservice.PurchaseInput) (*domain.Order, error)
	MarkDelivered(ctx context.Context, sellerID, orderID string) error
	Complete(ctx context.Context, buyerID, orderID string) error
	Cancel(ctx context.Context, callerID, orderID string) error
	RequestRefund(ctx context.Context, buyerID, orderID, reason string) (*domain.RefundRequest, error)
	GetOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

type OrderHandler struct {
	settlementService Service
}

func New(settlementService Service) *OrderHandler {
	return &OrderHandler{
		settlementService: settlementService,
	}
}

// Purchase godoc
//
//	@Summary		Buy a product
//	@Description	Debit the buyer, hold the seller's earning and open a pending order
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.PurchaseRequestDTO	true	"Purchase request body"
//	@Success		201		{object}	dto.OrderResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		402		{object}	utils.Response	"Insufficient balance"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/user/orders [post]
func (h *OrderHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.PurchaseRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductID == "" || req.SellerID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "product_id and seller_id are required")
		return
	}

	order, err := h.settlementService.Purchase(r.Context(), userID, settlementservice.PurchaseInput{
		ProductID: req.ProductID,
		SellerID:  req.SellerID,
		Amount:    req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, walletservice.ErrInsufficientBalance):
			utils.RespondWithError(w, http.StatusPaymentRequired, "Insufficient balance")
		case errors.Is(err, walletservice.ErrInvalidAmount):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid amount")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toOrderDTO(*order))
}

// GetOrders godoc
//
//	@Summary		List the caller's orders
//	@Description	Orders where the caller is buyer or seller, newest first
//	@Tags			Orders
//	@Produce		json
//	@Success		200	{array}		dto.OrderResponseDTO
//	@Success		204	"No orders"
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/user/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	orders, err := h.settlementService.GetOrders(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(orders) == 0 {
		utils.RespondWithJSON(w, http.StatusNoContent, nil)
		return
	}
	resp := make([]dto.OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderDTO(o))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Deliver godoc
//
//	@Summary		Mark an order delivered
//	@Description	Seller signals delivery; starts the buyer's confirmation window
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path	string	true	"Order ID"
//	@Success		200	{object}	utils.Response
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Not a participant"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"State conflict"
//	@Security		BearerAuth
//	@Router			/api/user/orders/{id}/deliver [post]
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.settlementService.MarkDelivered(r.Context(), userID, chi.URLParam(r, "id"))
	h.respondTransition(w, err, "Order marked delivered")
}

// Confirm godoc
//
//	@Summary		Confirm delivery
//	@Description	Buyer confirms; the seller's held earning becomes withdrawable
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path	string	true	"Order ID"
//	@Success		200	{object}	utils.Response
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Not a participant"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"State conflict"
//	@Security		BearerAuth
//	@Router			/api/user/orders/{id}/confirm [post]
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.settlementService.Complete(r.Context(), userID, chi.URLParam(r, "id"))
	h.respondTransition(w, err, "Order completed")
}

// Cancel godoc
//
//	@Summary		Cancel an order
//	@Description	Either side may cancel before completion; the buyer is refunded in full
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path	string	true	"Order ID"
//	@Success		200	{object}	utils.Response
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Not a participant"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"State conflict"
//	@Security		BearerAuth
//	@Router			/api/user/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	err := h.settlementService.Cancel(r.Context(), userID, chi.URLParam(r, "id"))
	h.respondTransition(w, err, "Order cancelled")
}

// RequestRefund godoc
//
//	@Summary		Request a refund
//	@Description	Buyer disputes a delivered or completed order; an admin reviews the request
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			id		path	string					true	"Order ID"
//	@Param			request	body	dto.RefundRequestDTO	true	"Refund request body"
//	@Success		201	{object}	dto.RefundResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid request body"
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Not a participant"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"State conflict or already requested"
//	@Security		BearerAuth
//	@Router			/api/user/orders/{id}/refund [post]
func (h *OrderHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := auth.Identity(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.RefundRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	request, err := h.settlementService.RequestRefund(r.Context(), userID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, settlementservice.ErrOrderNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, settlementservice.ErrNotOrderParticipant):
			utils.RespondWithError(w, http.StatusForbidden, "Not a participant of this order")
		case errors.Is(err, settlementservice.ErrOrderStateConflict):
			utils.RespondWithError(w, http.StatusConflict, "Order state does not allow a refund")
		case errors.Is(err, settlementservice.ErrRefundAlreadyRequested):
			utils.RespondWithError(w, http.StatusConflict, "Refund already requested")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.RefundResponseDTO{
		ID:        request.ID,
		OrderID:   request.OrderID,
		Amount:    request.Amount,
		Status:    request.Status,
		Reason:    request.Reason,
		CreatedAt: request.CreatedAt,
	})
}

func (h *OrderHandler) respondTransition(w http.ResponseWriter, err error, message string) {
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, utils.Response{Message: message})
	case errors.Is(err, settlementservice.ErrOrderNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, settlementservice.ErrNotOrderParticipant):
		utils.RespondWithError(w, http.StatusForbidden, "Not a participant of this order")
	case errors.Is(err, settlementservice.ErrOrderStateConflict):
		utils.RespondWithError(w, http.StatusConflict, "Order state does not allow this transition")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toOrderDTO(o domain.Order) dto.OrderResponseDTO {
	return dto.OrderResponseDTO{
		ID:            o.ID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		ProductID:     o.ProductID,
		Amount:        o.Amount,
		SellerEarning: o.SellerEarning,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		DeliveredAt:   o.DeliveredAt,
	}
}
