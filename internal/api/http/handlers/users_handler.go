package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// UsersHandler exposes account administration and the staff directory.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// ListUsers GET /api/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	var query service.UserQuery
	if err := parseQuery(c, &query); err != nil {
		return err
	}
	page, err := h.users.List(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"users":      dto.NewUserResponses(page.Users),
		"pagination": page.Pagination,
	})
}

// GetUser GET /api/users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": dto.NewUserResponse(user)})
}

// UpdateUser PUT /api/users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	var req service.AdminUserUpdate
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.users.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    dto.NewUserResponse(user),
	})
}

// DeleteUser DELETE /api/users/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// UserTickets GET /api/users/:id/tickets.
func (h *UsersHandler) UserTickets(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var query service.UserTicketsQuery
	if err := parseQuery(c, &query); err != nil {
		return err
	}
	page, err := h.users.Tickets(c.UserContext(), actor, c.Params("id"), query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"tickets":    dto.NewTicketResponses(page.Tickets, page.Users),
		"pagination": page.Pagination,
	})
}

// Stats GET /api/users/stats/overview.
func (h *UsersHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.users.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserStatsResponse(stats.Total, stats.Active, stats.Inactive, stats.ByRole, stats.Recent))
}

// SupportStaff GET /api/users/support/staff.
func (h *UsersHandler) SupportStaff(c *fiber.Ctx) error {
	staff, err := h.users.SupportStaff(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"supportStaff": dto.NewStaffMembers(staff)})
}
