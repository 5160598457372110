package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           string    `db:"id"`
	Login        string    `db:"login"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	RoleBuyer  string = "buyer"
	RoleSeller string = "seller"
	RoleAdmin  string = "admin"
)

// Account is a user's wallet. Balance is the available figure; PendingBalance
// holds seller earnings until the order completes. Both are cached sums kept
// consistent with the ledger inside the same transaction that appends entries.
type Account struct {
	ID             string          `db:"id"`
	OwnerID        string          `db:"owner_id"`
	Balance        decimal.Decimal `db:"balance"`
	PendingBalance decimal.Decimal `db:"pending_balance"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// LedgerEntry is an immutable, signed balance change. Entries are only ever
// appended; balance + pending_balance always equals the sum of the account's
// entries.
type LedgerEntry struct {
	ID             string          `db:"id"`
	AccountID      string          `db:"account_id"`
	Amount         decimal.Decimal `db:"amount"`
	Kind           string          `db:"kind"`
	ReferenceID    string          `db:"reference_id"`
	IdempotencyKey string          `db:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at"`
}

const (
	EntryTopup              string = "topup"
	EntryPurchaseDebit      string = "purchase_debit"
	EntryPurchaseCredit     string = "purchase_credit"
	EntryRefundCredit       string = "refund_credit"
	EntryRefundDebit        string = "refund_debit"
	EntryWithdrawalHold     string = "withdrawal_hold"
	EntryWithdrawalRelease  string = "withdrawal_release"
	EntryWithdrawalReversal string = "withdrawal_reversal"
)

type Order struct {
	ID            string          `db:"id"`
	BuyerID       string          `db:"buyer_id"`
	SellerID      string          `db:"seller_id"`
	ProductID     string          `db:"product_id"`
	Amount        decimal.Decimal `db:"amount"`
	SellerEarning decimal.Decimal `db:"seller_earning"`
	Status        string          `db:"status"`
	CreatedAt     time.Time       `db:"created_at"`
	DeliveredAt   *time.Time      `db:"delivered_at"`
}

const (
	OrderPending       string = "pending"
	OrderDelivered     string = "delivered"
	OrderCompleted     string = "completed"
	OrderCancelled     string = "cancelled"
	OrderRefundPending string = "refund_pending"
	OrderRefunded      string = "refunded"
)

// IsTerminal reports whether the order can no longer change state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderCompleted, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

type WithdrawalRequest struct {
	ID          string          `db:"id"`
	AccountID   string          `db:"account_id"`
	Amount      decimal.Decimal `db:"amount"`
	Method      string          `db:"method"`
	Destination string          `db:"destination"`
	Status      string          `db:"status"`
	AdminNotes  string          `db:"admin_notes"`
	CreatedAt   time.Time       `db:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at"`
}

type RefundRequest struct {
	ID          string          `db:"id"`
	OrderID     string          `db:"order_id"`
	BuyerID     string          `db:"buyer_id"`
	Amount      decimal.Decimal `db:"amount"`
	Status      string          `db:"status"`
	Reason      string          `db:"reason"`
	CreatedAt   time.Time       `db:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at"`
}

const (
	RequestPending  string = "pending"
	RequestApproved string = "approved"
	RequestRejected string = "rejected"
)

const (
	WithdrawalMethodCard string = "card"
	WithdrawalMethodBank string = "bank"
)
