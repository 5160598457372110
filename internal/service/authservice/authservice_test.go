package authservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/prozesy-ux/hero-mirror-sub002/internal/domain"
	"github.com/prozesy-ux/hero-mirror-sub002/pkg/auth"
)

func NewMock(t *testing.T) (*Service, *MockRepo, *MockWallet, *auth.MockHashServiceInterface, *auth.MockJWTServiceInterface) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepo(ctrl)
	wallet := NewMockWallet(ctrl)
	hashService := auth.NewMockHashServiceInterface(ctrl)
	jwtService := auth.NewMockJWTServiceInterface(ctrl)

	service := New(repo, wallet, hashService, jwtService)
	defer ctrl.Finish()
	return service, repo, wallet, hashService, jwtService
}

func TestRegister(t *testing.T) {
	service, userRepo, wallet, passwordHasher, _ := NewMock(t)

	tests := []struct {
		name          string
		login         string
		password      string
		role          string
		prepareMock   func()
		expectedError error
	}{
		{
			name:     "Successful registration defaults the role to buyer",
			login:    "testuser",
			password: "testpassword",
			role:     "",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).DoAndReturn(func(ctx context.Context, user *domain.User) (*domain.User, error) {
					assert.Equal(t, domain.RoleBuyer, user.Role)
					assert.NotEmpty(t, user.ID)
					return user, nil
				})
				wallet.EXPECT().GetOrCreateAccount(context.Background(), gomock.Any()).Return(&domain.Account{}, nil)
			},
		},
		{
			name:     "Seller registration",
			login:    "shopkeeper",
			password: "testpassword",
			role:     domain.RoleSeller,
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "shopkeeper").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).DoAndReturn(func(ctx context.Context, user *domain.User) (*domain.User, error) {
					assert.Equal(t, domain.RoleSeller, user.Role)
					return user, nil
				})
				wallet.EXPECT().GetOrCreateAccount(context.Background(), gomock.Any()).Return(&domain.Account{}, nil)
			},
		},
		{
			name:          "Nobody registers as admin",
			login:         "testuser",
			password:      "testpassword",
			role:          domain.RoleAdmin,
			expectedError: ErrBadRole,
		},
		{
			name:     "User already exists",
			login:    "testuser",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(&domain.User{Login: "testuser"}, nil)
			},
			expectedError: ErrLoginTaken,
		},
		{
			name:     "Error finding user",
			login:    "testuser",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(nil, errors.New("database error"))
			},
			expectedError: errors.New("database error"),
		},
		{
			name:     "Error hashing password",
			login:    "testuser",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("", errors.New("hashing error"))
			},
			expectedError: errors.New("hashing error"),
		},
		{
			name:     "Error creating account",
			login:    "testuser",
			password: "testpassword",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(nil, nil)
				passwordHasher.EXPECT().HashPassword("testpassword").Return("hashedpassword", nil)
				userRepo.EXPECT().Create(context.Background(), gomock.Any()).DoAndReturn(func(ctx context.Context, user *domain.User) (*domain.User, error) {
					return user, nil
				})
				wallet.EXPECT().GetOrCreateAccount(context.Background(), gomock.Any()).Return(nil, errors.New("account creation failed"))
			},
			expectedError: errors.New("account creation failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepareMock != nil {
				tt.prepareMock()
			}

			user, err := service.Register(context.Background(), tt.login, tt.password, tt.role)
			if tt.expectedError != nil {
				assert.Nil(t, user)
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.login, user.Login)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	service, userRepo, _, passwordHasher, _ := NewMock(t)

	tests := []struct {
		name          string
		prepareMock   func()
		expectedError error
	}{
		{
			name: "Successful authentication",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(&domain.User{
					ID: "u-1", Login: "testuser", PasswordHash: "hashedpassword", Role: domain.RoleBuyer,
				}, nil)
				passwordHasher.EXPECT().ComparePassword("hashedpassword", "testpassword").Return(true)
			},
		},
		{
			name: "Unknown login",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(nil, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name: "Wrong password",
			prepareMock: func() {
				userRepo.EXPECT().FindByLogin(context.Background(), "testuser").Return(&domain.User{
					ID: "u-1", Login: "testuser", PasswordHash: "hashedpassword",
				}, nil)
				passwordHasher.EXPECT().ComparePassword("hashedpassword", "testpassword").Return(false)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			user, err := service.Authenticate(context.Background(), "testuser", "testpassword")
			if tt.expectedError != nil {
				assert.Nil(t, user)
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, "testuser", user.Login)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	service, _, _, _, jwtService := NewMock(t)

	jwtService.EXPECT().GenerateJWT("u-1", domain.RoleSeller, gomock.Any()).Return("token", nil)

	token, err := service.GenerateToken("u-1", domain.RoleSeller)
	assert.NoError(t, err)
	assert.Equal(t, "token", token)

	jwtService.EXPECT().GenerateJWT("u-1", domain.RoleSeller, gomock.Any()).Return("", errors.New("sign error"))

	_, err = service.GenerateToken("u-1", domain.RoleSeller)
	assert.Error(t, err)
}
