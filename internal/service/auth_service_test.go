package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskdom/backend/internal/models"
	"github.com/taskdom/backend/internal/pkg/apperror"
	"github.com/taskdom/backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func testTokenManager() *TokenManager {
	return NewTokenManager("test-access-secret", "test-refresh-secret", 15*time.Minute, 720*time.Hour)
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:       "Ivan@Example.com",
		Password:    "secret123",
		DisplayName: "Иван",
	})
	assert.NoError(t, err)
	assert.Equal(t, "ivan@example.com", result.User.Email)
	assert.Equal(t, models.RoleCustomer, result.User.Role)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(repository.ErrEmailTaken)

	_, err := svc.Register(ctx, RegisterInput{
		Email:       "ivan@example.com",
		Password:    "secret123",
		DisplayName: "Иван",
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "уже зарегистрирован")
}

func TestAuthService_Register_ValidationErrors(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	cases := []RegisterInput{
		{Email: "not-an-email", Password: "secret123", DisplayName: "Иван"},
		{Email: "ivan@example.com", Password: "short", DisplayName: "Иван"},
		{Email: "ivan@example.com", Password: "secret123", DisplayName: ""},
		{Email: "ivan@example.com", Password: "secret123", DisplayName: "Иван", Role: "admin"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.Error(t, err)
		assert.True(t, apperror.IsValidation(err))
	}
	repo.AssertNotCalled(t, "Create")
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	assert.NoError(t, err)

	user := &models.User{
		ID:           uuid.New(),
		Email:        "ivan@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleWorker,
		IsActive:     true,
	}
	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)
	repo.On("CreateSession", ctx, mock.Anything).Return(nil)

	result, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "secret123"})
	assert.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), PasswordHash: string(hash), IsActive: true}
	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())
	ctx := context.Background()

	hash, _ := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	user := &models.User{ID: uuid.New(), PasswordHash: string(hash), IsActive: false}
	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "secret123"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "заблокирован")
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", Role: models.RoleCustomer, IsActive: true}
	pair, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).
		Return(&models.Session{UserID: user.ID, RefreshToken: pair.RefreshToken}, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.Anything).Return(nil)

	result, err := svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertCalled(t, "DeleteSession", ctx, pair.RefreshToken)
}

func TestAuthService_Refresh_UnknownSession(t *testing.T) {
	repo := new(mockAuthRepo)
	tm := testTokenManager()
	svc := NewAuthService(repo, tm)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleCustomer}
	pair, _, err := tm.GeneratePair(user)
	assert.NoError(t, err)

	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(nil, repository.ErrSessionNotFound)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc := NewAuthService(repo, testTokenManager())

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	repo.AssertNotCalled(t, "GetSessionByToken")
}
