package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func TestRegisterCreatesUserWithHashedPassword(t *testing.T) {
	f := newFixture(t)
	res, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     "Jo Lee",
		Email:    " JO@Example.com ",
		Password: "secret1",
		Phone:    "(201) 555-0123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "jo@example.com", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.True(t, res.User.IsActive)
	assert.Equal(t, "+12015550123", res.User.Phone)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)
	assert.NoError(t, auth.ComparePassword(res.User.PasswordHash, "secret1"))

	claims, err := f.auth.TokenManager().ParseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID())
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.auth.Register(ctx, RegisterInput{Name: "Jo Lee", Email: "jo@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, RegisterInput{Name: "Jo Again", Email: "Jo@example.com", Password: "secret2"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	_, total, err := f.users.List(ctx, repository.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestRegisterValidationListsFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.auth.Register(context.Background(), RegisterInput{Name: "J", Email: "nope", Password: "123"})
	require.Error(t, err)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
	fields := map[string]bool{}
	for _, fe := range de.Fields {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])

	_, total, _ := f.users.List(context.Background(), repository.UserFilter{})
	assert.Zero(t, total)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)

	_, err := f.auth.Login(ctx, LoginInput{Email: "jo@example.com", Password: "wrong-pass"})
	assert.Equal(t, "INVALID_CREDENTIALS", apperrors.ToDomainError(err).Code)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = f.auth.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret1"})
	assert.Equal(t, "INVALID_CREDENTIALS", apperrors.ToDomainError(err).Code)

	res, err := f.auth.Login(ctx, LoginInput{Email: "JO@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.Equal(t, f.clock, *stored.LastLogin)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)
	f.deactivate(t, user)

	_, err := f.auth.Login(ctx, LoginInput{Email: "jo@example.com", Password: "secret1"})
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "ACCOUNT_DEACTIVATED", de.Code)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus)
}

func TestUpdateProfileMergesFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)

	updated, err := f.auth.UpdateProfile(ctx, user.ID, ProfileInput{Company: strPtr("  Acme  ")})
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)
	assert.Equal(t, "Jo Lee", updated.Name)

	_, err = f.auth.UpdateProfile(ctx, user.ID, ProfileInput{Name: strPtr("J")})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)

	err := f.auth.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "bad", NewPassword: "another1"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	err = f.auth.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	require.NoError(t, f.auth.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "another1"}))
	_, err = f.auth.Login(ctx, LoginInput{Email: "jo@example.com", Password: "another1"})
	assert.NoError(t, err)
}

// interleavingUsers runs between once, right after the first GetByEmail, to
// stand in for a request that commits while a login is in flight.
type interleavingUsers struct {
	repository.UserRepository
	between func()
}

func (u *interleavingUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := u.UserRepository.GetByEmail(ctx, email)
	if u.between != nil {
		run := u.between
		u.between = nil
		run()
	}
	return user, err
}

func TestLoginKeepsPasswordChangedMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)

	racing := &interleavingUsers{UserRepository: f.users, between: func() {
		require.NoError(t, f.auth.ChangePassword(ctx, user.ID, ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "another1"}))
	}}
	login := NewAuthService(config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1, BcryptCost: 4}, AuthDependencies{UserRepo: racing})
	login.now = f.now

	_, err := login.Login(ctx, LoginInput{Email: "jo@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = f.auth.Login(ctx, LoginInput{Email: "jo@example.com", Password: "another1"})
	assert.NoError(t, err)
	_, err = f.auth.Login(ctx, LoginInput{Email: "jo@example.com", Password: "secret1"})
	assert.Equal(t, "INVALID_CREDENTIALS", apperrors.ToDomainError(err).Code)
}

func TestLoginDoesNotReactivateAccountDisabledMidway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)

	racing := &interleavingUsers{UserRepository: f.users, between: func() {
		inactive := false
		_, err := f.userSvc.Update(ctx, user.ID, AdminUserUpdate{IsActive: &inactive})
		require.NoError(t, err)
	}}
	login := NewAuthService(config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1, BcryptCost: 4}, AuthDependencies{UserRepo: racing})
	login.now = f.now

	_, err := login.Login(ctx, LoginInput{Email: "jo@example.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := f.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.LastLogin)
	assert.Equal(t, f.clock, *stored.LastLogin)
}
