package userrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
)

const testUserID = "2b5f2f61-9dd5-4f5a-a29f-57f6e3a74b01"

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB)
	defer mockDB.Close()

	return repo, mockDB
}

func TestRepository_FindByLogin(t *testing.T) {
	repo, mock := NewMock(t)

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		result    *domain.User
	}{
		{
			name: "Existing login returns user",
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"id", "login", "password_hash", "role"}).
					AddRow(testUserID, "seller1", "hashedpassword", domain.RoleSeller)
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, role FROM users WHERE login = $1`)).
					WithArgs("seller1").
					WillReturnRows(rows)
			},
			result: &domain.User{
				ID:           testUserID,
				Login:        "seller1",
				PasswordHash: "hashedpassword",
				Role:         domain.RoleSeller,
			},
		},
		{
			name: "Unknown login returns nil",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, role FROM users WHERE login = $1`)).
					WithArgs("seller1").
					WillReturnError(pgx.ErrNoRows)
			},
			result: nil,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, login, password_hash, role FROM users WHERE login = $1`)).
					WithArgs("seller1").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
			result:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			result, err := repo.FindByLogin(context.Background(), "seller1")

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.result, result)
		})
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := NewMock(t)

	user := func() *domain.User {
		return &domain.User{
			ID:           testUserID,
			Login:        "seller1",
			PasswordHash: "hashedpassword",
			Role:         domain.RoleSeller,
		}
	}

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
	}{
		{
			name: "Successfully creates user",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`
			INSERT INTO users (id, login, password_hash, role)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`)).
					WithArgs(testUserID, "seller1", "hashedpassword", domain.RoleSeller).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testUserID))
			},
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
					WithArgs(testUserID, "seller1", "hashedpassword", domain.RoleSeller).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			created, err := repo.Create(context.Background(), user())

			if tt.expectErr {
				assert.Error(t, err)
				assert.Nil(t, created)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, created)
				assert.Equal(t, testUserID, created.ID)
			}
		})
	}
}
