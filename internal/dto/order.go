package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseRequestDTO struct {
	ProductID string          `json:"product_id" validate:"required"`
	SellerID  string          `json:"seller_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" example:"100"`
}

type OrderResponseDTO struct {
	ID            string          `json:"id"`
	BuyerID       string          `json:"buyer_id"`
	SellerID      string          `json:"seller_id"`
	ProductID     string          `json:"product_id"`
	Amount        decimal.Decimal `json:"amount" example:"100"`
	SellerEarning decimal.Decimal `json:"seller_earning" example:"85"`
	Status        string          `json:"status" example:"pending"`
	CreatedAt     time.Time       `json:"created_at"`
	DeliveredAt   *time.Time      `json:"delivered_at,omitempty"`
}

type RefundRequestDTO struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type RefundResponseDTO struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount" example:"100"`
	Status      string          `json:"status" example:"pending"`
	Reason      string          `json:"reason"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}
