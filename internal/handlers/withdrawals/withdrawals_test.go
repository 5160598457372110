package withdrawals

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
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/walletservice"
	"github.com/prozesy-ux/hero-mirror-sub002/internal/service/withdrawalservice"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/utils"
)

const testUserID = "9a7b3c1d-5e2f-4a8b-9c0d-1e2f3a4b5c6d"

// Passes the Luhn check.
const testCardNumber = "4561261212345467"

func NewMock(t *testing.T) (*WithdrawalHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	defer ctrl.Finish()
	return handler, service
}

func authedContext(userID string) context.Context {
	ctx := context.WithValue(context.Background(), auth.UserIDKey, userID)
	return context.WithValue(ctx, auth.RoleKey, domain.RoleSeller)
}

func testRequest() *domain.WithdrawalRequest {
	return &domain.WithdrawalRequest{
		ID:          "w-1",
		AccountID:   "acc-1",
		Amount:      decimal.NewFromInt(50),
		Method:      domain.WithdrawalMethodCard,
		Destination: testCardNumber,
		Status:      domain.RequestPending,
		CreatedAt:   time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC),
	}
}

func TestRequestHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful request",
			body: `{"amount":"50","method":"card","destination":"` + testCardNumber + `"}`,
			prepareMock: func() {
				service.EXPECT().
					Request(gomock.Any(), testUserID, withdrawalservice.RequestInput{
						Amount:      decimal.NewFromInt(50),
						Method:      domain.WithdrawalMethodCard,
						Destination: testCardNumber,
					}).
					Return(testRequest(), nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name:          "Card fails Luhn check",
			body:          `{"amount":"50","method":"card","destination":"4561261212345464"}`,
			prepareMock:   func() {},
			expectedCode:  http.StatusUnprocessableEntity,
			expectedError: "Invalid card number",
		},
		{
			name: "Unknown method",
			body: `{"amount":"50","method":"paypal","destination":"someone@example.com"}`,
			prepareMock: func() {
				service.EXPECT().
					Request(gomock.Any(), testUserID, gomock.Any()).
					Return(nil, withdrawalservice.ErrBadMethod)
			},
			expectedCode:  http.StatusUnprocessableEntity,
			expectedError: "Unknown withdrawal method",
		},
		{
			name: "Insufficient balance",
			body: `{"amount":"5000","method":"bank","destination":"DE89370400440532013000"}`,
			prepareMock: func() {
				service.EXPECT().
					Request(gomock.Any(), testUserID, gomock.Any()).
					Return(nil, walletservice.ErrInsufficientBalance)
			},
			expectedCode:  http.StatusPaymentRequired,
			expectedError: "Insufficient balance",
		},
		{
			name: "Non-positive amount",
			body: `{"amount":"0","method":"bank","destination":"DE89370400440532013000"}`,
			prepareMock: func() {
				service.EXPECT().
					Request(gomock.Any(), testUserID, gomock.Any()).
					Return(nil, walletservice.ErrInvalidAmount)
			},
			expectedCode:  http.StatusUnprocessableEntity,
			expectedError: "Invalid amount",
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

			req := httptest.NewRequest("POST", "/api/user/withdrawals", bytes.NewReader([]byte(tt.body)))
			req = req.WithContext(authedContext(testUserID))
			rr := httptest.NewRecorder()

			handler.Request(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedError != "" {
				var resp utils.Response
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, tt.expectedError, resp.Message)
			} else {
				var resp dto.WithdrawalResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "w-1", resp.ID)
				assert.Equal(t, domain.RequestPending, resp.Status)
			}
		})
	}
}

func TestListHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Returns requests",
			prepareMock: func() {
				service.EXPECT().
					ListByUser(gomock.Any(), testUserID).
					Return([]domain.WithdrawalRequest{*testRequest()}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "No requests",
			prepareMock: func() {
				service.EXPECT().ListByUser(gomock.Any(), testUserID).Return(nil, nil)
			},
			expectedCode: http.StatusNoContent,
		},
		{
			name: "List failure",
			prepareMock: func() {
				service.EXPECT().ListByUser(gomock.Any(), testUserID).Return(nil, errors.New("db down"))
			},
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := httptest.NewRequest("GET", "/api/user/withdrawals", nil)
			req = req.WithContext(authedContext(testUserID))
			rr := httptest.NewRecorder()

			handler.List(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)

			if tt.expectedCode == http.StatusOK {
				var resp []dto.WithdrawalResponseDTO
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Len(t, resp, 1)
			}
		})
	}
}
