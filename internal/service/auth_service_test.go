package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/security"
	"github.com/Zimam07/Sonjog/internal/service"
)

func newAuthService(repo *MockUserRepo) (*service.AuthService, *security.TokenService, *security.PasswordHasher) {
	tokenSvc := security.NewTokenService("secret", time.Hour)
	hasher := security.NewPasswordHasher(bcrypt.MinCost) // low cost for tests
	return service.NewAuthService(repo, tokenSvc, hasher), tokenSvc, hasher
}

func TestRegister(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _, hasher := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "newuser").Return(nil, domain.ErrNotFound)
		mockRepo.On("GetByEmail", mock.Anything, "new@example.com").Return(nil, domain.ErrNotFound)
		mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "newuser" && u.Email == "new@example.com"
		})).Return(nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: " newuser ",
			Email:    "New@Example.com",
			Password: "Password1!",
		})
		require.NoError(t, err)
		assert.Equal(t, "newuser", user.Username)
		assert.True(t, user.IsActive)
		assert.True(t, hasher.Matches("Password1!", user.HashedPassword))
		mockRepo.AssertExpectations(t)
	})

	t.Run("UsernameTaken", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _, _ := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "existing").Return(&domain.User{Username: "existing"}, nil)

		user, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "existing",
			Email:    "e@example.com",
			Password: "Password1!",
		})
		assert.Nil(t, user)
		assert.Equal(t, domain.ErrConflict, err)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("EmailTaken", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _, _ := newAuthService(mockRepo)

		mockRepo.On("GetByUsername", mock.Anything, "fresh").Return(nil, domain.ErrNotFound)
		mockRepo.On("GetByEmail", mock.Anything, "taken@example.com").Return(&domain.User{ID: 3}, nil)

		_, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "fresh",
			Email:    "taken@example.com",
			Password: "Password1!",
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("MissingFields", func(t *testing.T) {
		svc, _, _ := newAuthService(new(MockUserRepo))
		_, err := svc.Register(context.Background(), service.RegisterInput{Username: "x"})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("PasswordTooLong", func(t *testing.T) {
		mockRepo := new(MockUserRepo)
		svc, _, _ := newAuthService(mockRepo)
		mockRepo.On("GetByUsername", mock.Anything, "long").Return(nil, domain.ErrNotFound)
		mockRepo.On("GetByEmail", mock.Anything, "long@example.com").Return(nil, domain.ErrNotFound)

		_, err := svc.Register(context.Background(), service.RegisterInput{
			Username: "long",
			Email:    "long@example.com",
			Password: strings.Repeat("a", 100),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestLogin(t *testing.T) {
	mockRepo := new(MockUserRepo)
	svc, tokens, hasher := newAuthService(mockRepo)

	hashed, err := hasher.Hash("Password1!")
	require.NoError(t, err)
	active := &domain.User{ID: 7, Username: "alice", Email: "alice@example.com", HashedPassword: hashed, IsActive: true}
	inactive := &domain.User{ID: 8, Username: "bob", Email: "bob@example.com", HashedPassword: hashed}

	mockRepo.On("GetByEmail", mock.Anything, "alice@example.com").Return(active, nil)
	mockRepo.On("GetByEmail", mock.Anything, "bob@example.com").Return(inactive, nil)
	mockRepo.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, domain.ErrNotFound)

	t.Run("Success", func(t *testing.T) {
		resp, err := svc.Login(context.Background(), service.LoginInput{Email: "Alice@example.com", Password: "Password1!"})
		require.NoError(t, err)
		assert.Equal(t, "bearer", resp.TokenType)
		assert.Equal(t, active, resp.User)

		userID, err := tokens.Parse(resp.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, int64(7), userID)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, err := svc.Login(context.Background(), service.LoginInput{Email: "alice@example.com", Password: "nope"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, err := svc.Login(context.Background(), service.LoginInput{Email: "ghost@example.com", Password: "Password1!"})
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("Inactive", func(t *testing.T) {
		_, err := svc.Login(context.Background(), service.LoginInput{Email: "bob@example.com", Password: "Password1!"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestAuthenticate(t *testing.T) {
	mockRepo := new(MockUserRepo)
	svc, tokens, _ := newAuthService(mockRepo)

	user := &domain.User{ID: 7, Username: "alice", IsActive: true}
	mockRepo.On("GetByID", mock.Anything, int64(7)).Return(user, nil)
	mockRepo.On("GetByID", mock.Anything, int64(9)).Return(nil, domain.ErrNotFound)

	tok, err := tokens.CreateForUser(7)
	require.NoError(t, err)
	got, err := svc.Authenticate(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	gone, err := tokens.CreateForUser(9)
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), gone)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
