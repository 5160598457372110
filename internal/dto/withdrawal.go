package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type WithdrawalRequestDTO struct {
	Amount      decimal.Decimal `json:"amount" example:"500"`
	Method      string          `json:"method" example:"card"`
	Destination string          `json:"destination" example:"2377225624"`
}

type WithdrawalResponseDTO struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount" example:"500"`
	Method      string          `json:"method" example:"card"`
	Destination string          `json:"destination"`
	Status      string          `json:"status" example:"pending"`
	AdminNotes  string          `json:"admin_notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

type ProcessRequestDTO struct {
	Notes string `json:"notes" example:"payout batch 2020-12-09"`
}
