package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
	"github.com/spec-kit/support-desk/pkg/util/phone"
	"github.com/spec-kit/support-desk/pkg/util/validation"
)

// AuthService coordinates registration, login and self-service profile flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	validate   *validation.Validator
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo  repository.UserRepository
	Validator *validation.Validator
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Company  string `json:"company" validate:"max=100"`
	Phone    string `json:"phone"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput is a partial profile update. Nil fields are left unchanged.
type ProfileInput struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=50"`
	Company *string `json:"company" validate:"omitempty,max=100"`
	Phone   *string `json:"phone"`
}

// ChangePasswordInput is the password change payload.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// AuthResult is a user together with a freshly issued token.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL()),
		validate:   v,
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// Register creates a new account with the user role. Nothing is stored when
// validation fails or the email is taken.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	input.Company = strings.TrimSpace(input.Company)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("User already exists with this email")
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Company:      input.Company,
		Phone:        phone.Normalize(input.Phone),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("User already exists with this email")
		}
		return nil, err
	}

	return s.issue(user)
}

// Login authenticates by email and password and stamps lastLogin.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.Email = normalizeEmail(input.Email)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, input.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	if !user.IsActive {
		return nil, apperrors.NewDeactivated()
	}

	now := s.now()
	stamped, err := s.users.Patch(ctx, user.ID, repository.UserPatch{LastLogin: &now})
	if err != nil {
		return nil, err
	}

	return s.issue(stamped)
}

// Profile returns the caller's account.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.loadUser(ctx, userID)
}

// UpdateProfile merges the provided fields into the caller's account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (*domain.User, error) {
	input.Name = trimPtr(input.Name)
	input.Company = trimPtr(input.Company)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	patch := repository.UserPatch{Name: input.Name, Company: input.Company}
	if input.Phone != nil {
		normalized := phone.Normalize(*input.Phone)
		patch.Phone = &normalized
	}
	return s.users.Patch(ctx, userID, patch)
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, input ChangePasswordInput) error {
	if err := s.validate.Struct(input); err != nil {
		return err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, input.CurrentPassword); err != nil {
		return apperrors.NewDomainError("INVALID_CREDENTIALS", "Current password is incorrect", 400, nil)
	}

	hash, err := auth.HashPassword(input.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	_, err = s.users.Patch(ctx, user.ID, repository.UserPatch{PasswordHash: &hash})
	return err
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	if !validID(userID) {
		return nil, apperrors.NewNotFound("User")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
