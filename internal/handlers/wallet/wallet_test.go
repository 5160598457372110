package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/dto"
	ledgerrepo "github.com/prozesy-ux/hero-mirror-sub002/internal/repo/ledger-repo"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/utils"
)

const (
	testUserID    = "2b5f2f61-9dd5-4f5a-a29f-57f6e3a74b01"
	testAccountID = "7fb1c3fe-0d0e-41be-92b1-0e3c1f9d2a44"
)

func NewMock(t *testing.T) (*WalletHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	defer ctrl.Finish()
	return handler, service
}

func authedContext(userID string) context.Context {
	ctx := context.WithValue(context.Background(), auth.UserIDKey, userID)
	return context.WithValue(ctx, auth.RoleKey, domain.RoleBuyer)
}

func testAccount() *domain.Account {
	return &domain.Account{
		ID:             testAccountID,
		OwnerID:        testUserID,
		Balance:        decimal.NewFromInt(150),
		PendingBalance: decimal.NewFromInt(30),
	}
}

func TestGetWallet(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		authed        bool
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name:   "Returns balances",
			authed: true,
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Unauthorized without identity",
			authed:        false,
			prepareMock:   func() {},
			expectedCode:  http.StatusUnauthorized,
			expectedError: "Unauthorized",
		},
		{
			name:   "Account lookup failure",
			authed: true,
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(nil, errors.New("db down"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("GET", "/api/user/wallet", nil)
			if tt.authed {
				req = req.WithContext(authedContext(testUserID))
			}
			rr := httptest.NewRecorder()

			handler.GetWallet(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
			} else {
				var resp dto.WalletResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, testAccountID, resp.AccountID)
				assert.True(t, resp.Balance.Equal(decimal.NewFromInt(150)))
				assert.True(t, resp.Pending.Equal(decimal.NewFromInt(30)))
			}
		})
	}
}

func TestTopup(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful topup",
			body: `{"amount":"25","idempotency_key":"topup-1"}`,
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
				service.EXPECT().
					Topup(gomock.Any(), testAccountID, decimal.NewFromInt(25), "topup-1").
					Return(nil)
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Missing idempotency key",
			body:          `{"amount":"25"}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Idempotency key is required",
		},
		{
			name: "Non-positive amount",
			body: `{"amount":"-5","idempotency_key":"topup-2"}`,
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
				service.EXPECT().
					Topup(gomock.Any(), testAccountID, decimal.NewFromInt(-5), "topup-2").
					Return(walletservice.ErrInvalidAmount)
			},
			expectedCode:  http.StatusUnprocessableEntity,
			expectedError: "Invalid amount",
		},
		{
			// A retried key means the credit already committed; the caller
			// gets the same success answer as the first attempt.
			name: "Replayed idempotency key is a no-op success",
			body: `{"amount":"25","idempotency_key":"topup-1"}`,
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
				service.EXPECT().
					Topup(gomock.Any(), testAccountID, decimal.NewFromInt(25), "topup-1").
					Return(walletservice.ErrDuplicateIdempotencyKey)
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:          "Invalid request body",
			body:          `{invalid json`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("POST", "/api/user/wallet/topup", bytes.NewReader([]byte(tt.body)))
			req = req.WithContext(authedContext(testUserID))
			rr := httptest.NewRecorder()

			handler.Topup(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
			} else {
				var resp dto.WalletResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, testAccountID, resp.AccountID)
				assert.True(t, resp.Balance.Equal(decimal.NewFromInt(150)))
			}
		})
	}
}

func TestGetEntries(t *testing.T) {
	handler, service := NewMock(t)

	entries := []domain.LedgerEntry{
		{
			ID:          "e-2",
			AccountID:   testAccountID,
			Amount:      decimal.NewFromInt(25),
			Kind:        domain.EntryTopup,
			ReferenceID: "topup-1",
			CreatedAt:   time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:          "e-1",
			AccountID:   testAccountID,
			Amount:      decimal.NewFromInt(-10),
			Kind:        domain.EntryPurchaseDebit,
			ReferenceID: "order-1",
			CreatedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	tests := []struct {
		name          string
		target        string
		prepareMock   func()
		expectedCode  int
		expectedError string
		expectedNext  string
	}{
		{
			name:   "First page",
			target: "/api/user/wallet/entries?limit=2",
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
				service.EXPECT().
					ListEntries(gomock.Any(), testAccountID, 2, "").
					Return(entries, "next-cursor", nil)
			},
			expectedCode: http.StatusOK,
			expectedNext: "next-cursor",
		},
		{
			name:   "Bad cursor",
			target: "/api/user/wallet/entries?cursor=garbage",
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
				service.EXPECT().
					ListEntries(gomock.Any(), testAccountID, 0, "garbage").
					Return(nil, "", ledgerrepo.ErrBadCursor)
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Bad cursor",
		},
		{
			name:   "List failure",
			target: "/api/user/wallet/entries",
			prepareMock: func() {
				service.EXPECT().GetOrCreateAccount(gomock.Any(), testUserID).Return(testAccount(), nil)
				service.EXPECT().
					ListEntries(gomock.Any(), testAccountID, 0, "").
					Return(nil, "", errors.New("db down"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("GET", tt.target, nil)
			req = req.WithContext(authedContext(testUserID))
			rr := httptest.NewRecorder()

			handler.GetEntries(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
			} else {
				var page dto.LedgerPageDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
				assert.Len(t, page.Entries, 2)
				assert.Equal(t, tt.expectedNext, page.NextCursor)
				assert.Equal(t, "e-2", page.Entries[0].ID)
			}
		})
	}
}
