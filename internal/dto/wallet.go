package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletResponseDTO struct {
	AccountID string          `json:"account_id" example:"74bd25b3-7d50-4869-b925-01e1a9e4a3f1"`
	Balance   decimal.Decimal `json:"balance" example:"500.5"`
	Pending   decimal.Decimal `json:"pending" example:"42"`
}

type TopupRequestDTO struct {
	Amount         decimal.Decimal `json:"amount" example:"500"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required" example:"topup-2020-12-09-001"`
}

type LedgerEntryDTO struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount" example:"-500"`
	Kind        string          `json:"kind" example:"purchase_debit"`
	ReferenceID string          `json:"reference_id"`
	CreatedAt   time.Time       `json:"created_at" example:"2020-12-09T16:09:57+03:00"`
}

type LedgerPageDTO struct {
	Entries    []LedgerEntryDTO `json:"entries"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type VerifyResponseDTO struct {
	AccountID  string `json:"account_id"`
	Consistent bool   `json:"consistent"`
}

type TransferLegDTO struct {
	AccountID      string          `json:"account_id" validate:"required"`
	Amount         decimal.Decimal `json:"amount" example:"-100"`
	Kind           string          `json:"kind" example:"purchase_debit"`
	Pending        bool            `json:"pending"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
}

type RepairRequestDTO struct {
	ReferenceID string         `json:"reference_id" validate:"required"`
	Debit       TransferLegDTO `json:"debit"`
	Credit      TransferLegDTO `json:"credit"`
}
