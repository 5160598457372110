package withdrawalrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
)

const (
	testRequestID = "c9d0e1f2-3a4b-5c6d-7e8f-9a0b1c2d3e4f"
	testAccountID = "7fb1c3fe-0d0e-41be-92b1-0e3c1f9d2a44"
)

var withdrawalColumns = []string{"id", "account_id", "amount", "method", "destination", "status", "admin_notes", "created_at", "processed_at"}

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func withdrawalRow(createdAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(withdrawalColumns).
		AddRow(testRequestID, testAccountID, decimal.NewFromInt(50),
			domain.WithdrawalMethodBank, "DE89370400440532013000", domain.RequestPending, "", createdAt, nil)
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	withdrawal := func() *domain.WithdrawalRequest {
		return &domain.WithdrawalRequest{
			ID:          testRequestID,
			AccountID:   testAccountID,
			Amount:      decimal.NewFromInt(50),
			Method:      domain.WithdrawalMethodBank,
			Destination: "DE89370400440532013000",
			Status:      domain.RequestPending,
		}
	}

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
	}{
		{
			name: "Successfully creates request",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO withdrawal_requests (id, account_id, amount, method, destination, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`)).
					WithArgs(testRequestID, testAccountID, decimal.NewFromInt(50),
						domain.WithdrawalMethodBank, "DE89370400440532013000", domain.RequestPending).
					WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(now))
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO withdrawal_requests`)).
					WithArgs(testRequestID, testAccountID, decimal.NewFromInt(50),
						domain.WithdrawalMethodBank, "DE89370400440532013000", domain.RequestPending).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			created, err := repo.Create(context.Background(), withdrawal())

			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, created)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, created)
				assert.Equal(t, now, created.CreatedAt)
			}
		})
	}
}

func TestRepository_GetByIDForUpdate(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	tests := []struct {
		name      string
		mockSetup func()
		found     bool
	}{
		{
			name: "Existing request locks the row",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
					WithArgs(testRequestID).
					WillReturnRows(withdrawalRow(now))
			},
			found: true,
		},
		{
			name: "Unknown request returns nil",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
					WithArgs(testRequestID).
					WillReturnError(pgx.ErrNoRows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			request, err := repo.GetByIDForUpdate(context.Background(), testRequestID)
			assert.NoError(t, err)
			if tt.found {
				assert.NotNil(t, request)
				assert.Equal(t, testRequestID, request.ID)
			} else {
				assert.Nil(t, request)
			}
		})
	}
}

func TestRepository_ListByAccount(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE account_id = $1`)).
		WithArgs(testAccountID).
		WillReturnRows(withdrawalRow(now))

	requests, err := repo.ListByAccount(context.Background(), testAccountID)
	assert.NoError(t, err)
	assert.Len(t, requests, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE account_id = $1`)).
		WithArgs(testAccountID).
		WillReturnError(errors.New("database error"))

	_, err = repo.ListByAccount(context.Background(), testAccountID)
	assert.Error(t, err)
}

func TestRepository_ListByStatus(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = $1`)).
		WithArgs(domain.RequestPending).
		WillReturnRows(withdrawalRow(now))

	requests, err := repo.ListByStatus(context.Background(), domain.RequestPending)
	assert.NoError(t, err)
	assert.Len(t, requests, 1)
	assert.Equal(t, domain.RequestPending, requests[0].Status)
}

func TestRepository_MarkProcessed(t *testing.T) {
	repo, mock := NewMock(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`
        UPDATE withdrawal_requests
        SET status = $1, admin_notes = $2, processed_at = $3
        WHERE id = $4 AND status = $5
    `)).
		WithArgs(domain.RequestRejected, "suspicious destination", now, testRequestID, domain.RequestPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.MarkProcessed(context.Background(), testRequestID, domain.RequestRejected, "suspicious destination", now)
	assert.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE withdrawal_requests`)).
		WithArgs(domain.RequestRejected, "", now, testRequestID, domain.RequestPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err = repo.MarkProcessed(context.Background(), testRequestID, domain.RequestRejected, "", now)
	assert.NoError(t, err)
	assert.False(t, ok, "request already processed")
}
