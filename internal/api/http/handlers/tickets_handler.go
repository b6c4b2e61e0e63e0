package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
)

// TicketsHandler manages ticket endpoints for every role. Scoping is applied
// by the service from the caller's role.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.CreateTicketInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.Create(c.UserContext(), user, req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Ticket created successfully",
		"ticket":  dto.NewTicketResponse(view.Ticket, view.Users),
	})
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var query service.TicketQuery
	if err := parseQuery(c, &query); err != nil {
		return err
	}
	page, err := h.service.List(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"tickets":    dto.NewTicketResponses(page.Tickets, page.Users),
		"pagination": page.Pagination,
	})
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ticket": dto.NewTicketResponse(view.Ticket, view.Users)})
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.UpdateTicketInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.Update(c.UserContext(), user, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Ticket updated successfully",
		"ticket":  dto.NewTicketResponse(view.Ticket, view.Users),
	})
}

// AddResponse POST /api/tickets/:id/responses.
func (h *TicketsHandler) AddResponse(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.ResponseInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.AddResponse(c.UserContext(), user, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Response added successfully",
		"ticket":  dto.NewTicketResponse(view.Ticket, view.Users),
	})
}

// AddAttachment POST /api/tickets/:id/attachments.
func (h *TicketsHandler) AddAttachment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.AttachmentInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.AddAttachment(c.UserContext(), user, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Attachment added successfully",
		"ticket":  dto.NewTicketResponse(view.Ticket, view.Users),
	})
}

// AssignTicket PUT /api/tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.AssignInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.Assign(c.UserContext(), user, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Ticket assigned successfully",
		"ticket":  dto.NewTicketResponse(view.Ticket, view.Users),
	})
}

// RateSatisfaction POST /api/tickets/:id/satisfaction.
func (h *TicketsHandler) RateSatisfaction(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req service.SatisfactionInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.RateSatisfaction(c.UserContext(), user, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message": "Satisfaction rating submitted successfully",
		"ticket":  dto.NewTicketResponse(view.Ticket, view.Users),
	})
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), user, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Ticket deleted successfully"})
}

// History GET /api/tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"history": dto.NewTicketHistoryResponses(entries)})
}
