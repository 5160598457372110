package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/dto"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/settlementservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/withdrawalservice"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/utils"
)

const (
	testAdminID   = "5a1b2c3d-7e8f-4a5b-8c9d-0e1f2a3b4c5d"
	testRequestID = "c9d0e1f2-3a4b-5c6d-7e8f-9a0b1c2d3e4f"
)

func NewMock(t *testing.T) (*AdminHandler, *MockWithdrawalService, *MockSettlementService, *MockWalletService) {
	ctrl := gomock.NewController(t)
	withdrawalService := NewMockWithdrawalService(ctrl)
	settlementService := NewMockSettlementService(ctrl)
	walletService := NewMockWalletService(ctrl)
	handler := New(withdrawalService, settlementService, walletService)
	defer ctrl.Finish()
	return handler, withdrawalService, settlementService, walletService
}

func adminRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, testAdminID)
	ctx = context.WithValue(ctx, auth.RoleKey, domain.RoleAdmin)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", testRequestID)
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, rctx))
}

func TestListWithdrawals(t *testing.T) {
	handler, withdrawalService, _, _ := NewMock(t)

	pending := []domain.WithdrawalRequest{{
		ID:          testRequestID,
		AccountID:   "acc-1",
		Amount:      decimal.NewFromInt(50),
		Method:      domain.WithdrawalMethodBank,
		Destination: "DE89370400440532013000",
		Status:      domain.RequestPending,
		CreatedAt:   time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC),
	}}

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Returns pending requests",
			prepareMock: func() {
				withdrawalService.EXPECT().ListPending(gomock.Any(), testAdminID).Return(pending, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "List failure",
			prepareMock: func() {
				withdrawalService.EXPECT().ListPending(gomock.Any(), testAdminID).Return(nil, errors.New("db down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			rr := httptest.NewRecorder()
			handler.ListWithdrawals(rr, adminRequest("GET", "/api/admin/withdrawals", nil))

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedCode == http.StatusOK {
				var resp []dto.WithdrawalResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Len(t, resp, 1)
				assert.Equal(t, testRequestID, resp[0].ID)
			}
		})
	}
}

func TestProcessWithdrawal(t *testing.T) {
	handler, withdrawalService, _, _ := NewMock(t)

	tests := []struct {
		name            string
		body            string
		call            func(http.ResponseWriter, *http.Request)
		prepareMock     func()
		expectedCode    int
		expectedMessage string
	}{
		{
			name: "Approve with notes",
			body: `{"notes":"paid via bank run 42"}`,
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.ApproveWithdrawal(w, r)
			},
			prepareMock: func() {
				withdrawalService.EXPECT().
					Approve(gomock.Any(), testAdminID, testRequestID, "paid via bank run 42").
					Return(nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "Withdrawal approved",
		},
		{
			name: "Approve without body",
			body: "",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.ApproveWithdrawal(w, r)
			},
			prepareMock: func() {
				withdrawalService.EXPECT().
					Approve(gomock.Any(), testAdminID, testRequestID, "").
					Return(nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "Withdrawal approved",
		},
		{
			name: "Reject returns the hold",
			body: `{"notes":"suspicious destination"}`,
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.RejectWithdrawal(w, r)
			},
			prepareMock: func() {
				withdrawalService.EXPECT().
					Reject(gomock.Any(), testAdminID, testRequestID, "suspicious destination").
					Return(nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "Withdrawal rejected",
		},
		{
			name: "Unknown request",
			body: "",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.ApproveWithdrawal(w, r)
			},
			prepareMock: func() {
				withdrawalService.EXPECT().
					Approve(gomock.Any(), testAdminID, testRequestID, "").
					Return(withdrawalservice.ErrRequestNotFound)
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "Request not found",
		},
		{
			name: "Already processed",
			body: "",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.RejectWithdrawal(w, r)
			},
			prepareMock: func() {
				withdrawalService.EXPECT().
					Reject(gomock.Any(), testAdminID, testRequestID, "").
					Return(withdrawalservice.ErrAlreadyProcessed)
			},
			expectedCode:    http.StatusConflict,
			expectedMessage: "Request already processed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			var body io.Reader
			if tt.body != "" {
				body = bytes.NewReader([]byte(tt.body))
			}
			rr := httptest.NewRecorder()

			tt.call(rr, adminRequest("POST", "/api/admin/withdrawals/"+testRequestID+"/approve", body))

			assert.Equal(t, tt.expectedCode, rr.Code)

			var resp utils.Response
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.expectedMessage, resp.Message)
		})
	}
}

func TestListRefunds(t *testing.T) {
	handler, _, settlementService, _ := NewMock(t)

	requests := []domain.RefundRequest{{
		ID:        testRequestID,
		OrderID:   "order-1",
		BuyerID:   "buyer-1",
		Amount:    decimal.NewFromInt(100),
		Status:    domain.RequestPending,
		Reason:    "damaged on arrival",
		CreatedAt: time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC),
	}}

	tests := []struct {
		name         string
		target       string
		prepareMock  func()
		expectedCode int
	}{
		{
			name:   "Defaults to pending",
			target: "/api/admin/refunds",
			prepareMock: func() {
				settlementService.EXPECT().
					ListRefunds(gomock.Any(), testAdminID, domain.RequestPending).
					Return(requests, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "Explicit status",
			target: "/api/admin/refunds?status=approved",
			prepareMock: func() {
				settlementService.EXPECT().
					ListRefunds(gomock.Any(), testAdminID, domain.RequestApproved).
					Return(nil, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:   "List failure",
			target: "/api/admin/refunds",
			prepareMock: func() {
				settlementService.EXPECT().
					ListRefunds(gomock.Any(), testAdminID, domain.RequestPending).
					Return(nil, errors.New("db down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			rr := httptest.NewRecorder()
			handler.ListRefunds(rr, adminRequest("GET", tt.target, nil))

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}

func TestProcessRefund(t *testing.T) {
	handler, _, settlementService, _ := NewMock(t)

	tests := []struct {
		name            string
		call            func(http.ResponseWriter, *http.Request)
		prepareMock     func()
		expectedCode    int
		expectedMessage string
	}{
		{
			name: "Approve succeeds",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.ApproveRefund(w, r)
			},
			prepareMock: func() {
				settlementService.EXPECT().ApproveRefund(gomock.Any(), testAdminID, testRequestID).Return(nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "Refund approved",
		},
		{
			name: "Seller drained their balance",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.ApproveRefund(w, r)
			},
			prepareMock: func() {
				settlementService.EXPECT().
					ApproveRefund(gomock.Any(), testAdminID, testRequestID).
					Return(settlementservice.ErrRefundExceedsBalance)
			},
			expectedCode:    http.StatusUnprocessableEntity,
			expectedMessage: "Seller balance insufficient for refund",
		},
		{
			name: "Reject restores the order",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.RejectRefund(w, r)
			},
			prepareMock: func() {
				settlementService.EXPECT().RejectRefund(gomock.Any(), testAdminID, testRequestID).Return(nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "Refund rejected",
		},
		{
			name: "Already processed",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.RejectRefund(w, r)
			},
			prepareMock: func() {
				settlementService.EXPECT().
					RejectRefund(gomock.Any(), testAdminID, testRequestID).
					Return(settlementservice.ErrAlreadyProcessed)
			},
			expectedCode:    http.StatusConflict,
			expectedMessage: "Request already processed",
		},
		{
			name: "Unknown request",
			call: func(w http.ResponseWriter, r *http.Request) {
				handler.ApproveRefund(w, r)
			},
			prepareMock: func() {
				settlementService.EXPECT().
					ApproveRefund(gomock.Any(), testAdminID, testRequestID).
					Return(settlementservice.ErrRequestNotFound)
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "Request not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			rr := httptest.NewRecorder()
			tt.call(rr, adminRequest("POST", "/api/admin/refunds/"+testRequestID+"/approve", nil))

			assert.Equal(t, tt.expectedCode, rr.Code)

			var resp utils.Response
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.expectedMessage, resp.Message)
		})
	}
}

func TestVerifyAccount(t *testing.T) {
	handler, _, _, walletService := NewMock(t)

	tests := []struct {
		name           string
		prepareMock    func()
		expectedCode   int
		wantConsistent bool
	}{
		{
			name: "Balances match the ledger",
			prepareMock: func() {
				walletService.EXPECT().VerifyAccount(gomock.Any(), testRequestID).Return(true, nil)
			},
			expectedCode:   http.StatusOK,
			wantConsistent: true,
		},
		{
			name: "Mismatch is reported",
			prepareMock: func() {
				walletService.EXPECT().VerifyAccount(gomock.Any(), testRequestID).Return(false, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Unknown account",
			prepareMock: func() {
				walletService.EXPECT().
					VerifyAccount(gomock.Any(), testRequestID).
					Return(false, walletservice.ErrAccountNotFound)
			},
			expectedCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			rr := httptest.NewRecorder()
			handler.VerifyAccount(rr, adminRequest("GET", "/api/admin/accounts/"+testRequestID+"/verify", nil))

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedCode == http.StatusOK {
				var resp dto.VerifyResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, testRequestID, resp.AccountID)
				assert.Equal(t, tt.wantConsistent, resp.Consistent)
			}
		})
	}
}

func TestRepairTransfer(t *testing.T) {
	handler, _, _, walletService := NewMock(t)

	body := `{
		"reference_id": "order-1",
		"debit": {"account_id": "acc-buyer", "amount": "-100", "kind": "purchase_debit", "idempotency_key": "order-1:buyer_debit"},
		"credit": {"account_id": "acc-seller", "amount": "85", "kind": "purchase_credit", "pending": true, "idempotency_key": "order-1:seller_credit"}
	}`

	tests := []struct {
		name            string
		body            string
		prepareMock     func()
		expectedCode    int
		expectedMessage string
	}{
		{
			name: "Re-applies both legs",
			body: body,
			prepareMock: func() {
				walletService.EXPECT().
					RepairTransfer(gomock.Any(), "order-1",
						walletservice.TransferLeg{
							AccountID:      "acc-buyer",
							Amount:         decimal.NewFromInt(-100),
							Kind:           domain.EntryPurchaseDebit,
							IdempotencyKey: "order-1:buyer_debit",
						},
						walletservice.TransferLeg{
							AccountID:      "acc-seller",
							Amount:         decimal.NewFromInt(85),
							Kind:           domain.EntryPurchaseCredit,
							Pending:        true,
							IdempotencyKey: "order-1:seller_credit",
						}).
					Return(nil)
			},
			expectedCode:    http.StatusOK,
			expectedMessage: "Transfer repaired",
		},
		{
			name:            "Missing legs",
			body:            `{"reference_id": "order-1"}`,
			prepareMock:     func() {},
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "reference_id and both legs are required",
		},
		{
			name: "Unknown account",
			body: body,
			prepareMock: func() {
				walletService.EXPECT().
					RepairTransfer(gomock.Any(), "order-1", gomock.Any(), gomock.Any()).
					Return(walletservice.ErrAccountNotFound)
			},
			expectedCode:    http.StatusNotFound,
			expectedMessage: "Account not found",
		},
		{
			name:            "Invalid request body",
			body:            `{invalid json`,
			prepareMock:     func() {},
			expectedCode:    http.StatusBadRequest,
			expectedMessage: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			rr := httptest.NewRecorder()
			handler.RepairTransfer(rr, adminRequest("POST", "/api/admin/transfers/repair", bytes.NewReader([]byte(tt.body))))

			assert.Equal(t, tt.expectedCode, rr.Code)

			var resp utils.Response
			if tt.expectedMessage != "" && tt.expectedCode != http.StatusOK {
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedMessage, resp.Message)
			}
		})
	}
}
