package service

import (
	"context"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
	"github.com/spec-kit/support-desk/pkg/util/phone"
	"github.com/spec-kit/support-desk/pkg/util/validation"
)

const recentUsersLimit = 5

// UserService implements account administration and the staff directory.
type UserService struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	validate *validation.Validator
}

// UserDependencies bundles repositories for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Validator  *validation.Validator
}

// UserQuery holds admin listing filters.
type UserQuery struct {
	Page      int         `query:"page" json:"page" validate:"gte=0"`
	Limit     int         `query:"limit" json:"limit" validate:"gte=0,lte=100"`
	Role      domain.Role `query:"role" json:"role" validate:"omitempty,oneof=user support admin"`
	Search    string      `query:"search" json:"search"`
	SortBy    string      `query:"sortBy" json:"sortBy" validate:"omitempty,oneof=createdAt name email role lastLogin"`
	SortOrder string      `query:"sortOrder" json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// UserTicketsQuery pages one user's tickets.
type UserTicketsQuery struct {
	Page   int                 `query:"page" json:"page" validate:"gte=0"`
	Limit  int                 `query:"limit" json:"limit" validate:"gte=0,lte=100"`
	Status domain.TicketStatus `query:"status" json:"status" validate:"omitempty,oneof=open in-progress waiting-for-customer resolved closed"`
}

// AdminUserUpdate is a partial account update by an admin.
type AdminUserUpdate struct {
	Name     *string      `json:"name" validate:"omitempty,min=2,max=50"`
	Email    *string      `json:"email" validate:"omitempty,email"`
	Role     *domain.Role `json:"role" validate:"omitempty,oneof=user support admin"`
	Company  *string      `json:"company" validate:"omitempty,max=100"`
	Phone    *string      `json:"phone"`
	IsActive *bool        `json:"isActive"`
}

// UserPage is one page of users.
type UserPage struct {
	Users      []domain.User
	Pagination Pagination
}

// UserStats summarises the account population.
type UserStats struct {
	Total    int
	Active   int
	Inactive int
	ByRole   map[domain.Role]int
	Recent   []domain.User
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &UserService{users: deps.UserRepo, tickets: deps.TicketRepo, validate: v}
}

// List pages through accounts.
func (s *UserService) List(ctx context.Context, query UserQuery) (*UserPage, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, err
	}
	page, limit, offset := pageBounds(query.Page, query.Limit)

	filter := repository.UserFilter{
		Search: strings.TrimSpace(query.Search),
		SortBy: query.SortBy,
		Desc:   query.SortOrder != "asc",
		Limit:  limit,
		Offset: offset,
	}
	if query.Role != "" {
		filter.Roles = []domain.Role{query.Role}
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Pagination: NewPagination(page, limit, total)}, nil
}

// Get returns one account.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.load(ctx, id)
}

// Update merges input into the account. A taken email is a conflict.
func (s *UserService) Update(ctx context.Context, id string, input AdminUserUpdate) (*domain.User, error) {
	input.Name = trimPtr(input.Name)
	input.Company = trimPtr(input.Company)
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		input.Email = &email
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := repository.UserPatch{
		Name:     input.Name,
		Role:     input.Role,
		Company:  input.Company,
		IsActive: input.IsActive,
	}
	if input.Email != nil && *input.Email != user.Email {
		existing, err := s.users.GetByEmail(ctx, *input.Email)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			return nil, apperrors.NewConflict("Email is already taken")
		}
		patch.Email = input.Email
	}
	if input.Phone != nil {
		normalized := phone.Normalize(*input.Phone)
		patch.Phone = &normalized
	}

	updated, err := s.users.Patch(ctx, user.ID, patch)
	if err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("Email is already taken")
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes an account that owns no tickets.
func (s *UserService) Delete(ctx context.Context, id string) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.tickets.CountByCreator(ctx, user.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewConflict("Cannot delete user with existing tickets. Consider deactivating instead.")
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("User")
		}
		return err
	}
	return nil
}

// Tickets pages through the tickets created by userID. Staff may read any
// user's tickets, everyone else only their own.
func (s *UserService) Tickets(ctx context.Context, actor *domain.User, userID string, query UserTicketsQuery) (*TicketPage, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, err
	}
	if !actor.Role.Can(domain.ActionUserTicketsAny) && actor.ID != userID {
		return nil, apperrors.NewForbidden("")
	}
	if !validID(userID) {
		return nil, apperrors.NewNotFound("User")
	}
	page, limit, offset := pageBounds(query.Page, query.Limit)

	filter := repository.TicketFilter{
		CreatorID: &userID,
		SortBy:    "createdAt",
		Desc:      true,
		Limit:     limit,
		Offset:    offset,
	}
	if query.Status != "" {
		filter.Status = &query.Status
	}

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return buildTicketPage(ctx, s.users, actor, tickets, NewPagination(page, limit, total))
}

// Stats summarises accounts by activity and role.
func (s *UserService) Stats(ctx context.Context) (*UserStats, error) {
	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.users.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.users.List(ctx, repository.UserFilter{SortBy: "createdAt", Desc: true, Limit: recentUsersLimit})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range byRole {
		total += n
	}
	for _, role := range domain.Roles {
		if _, ok := byRole[role]; !ok {
			byRole[role] = 0
		}
	}
	return &UserStats{
		Total:    total,
		Active:   active,
		Inactive: total - active,
		ByRole:   byRole,
		Recent:   recent,
	}, nil
}

// SupportStaff lists active support and admin users by name.
func (s *UserService) SupportStaff(ctx context.Context) ([]domain.User, error) {
	active := true
	staff, _, err := s.users.List(ctx, repository.UserFilter{
		Roles:  []domain.Role{domain.RoleSupport, domain.RoleAdmin},
		Active: &active,
		SortBy: "name",
	})
	return staff, err
}

func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("User")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, err
	}
	return user, nil
}
