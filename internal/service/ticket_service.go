package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
	"github.com/spec-kit/support-desk/pkg/util/validation"
)

var errInvalidDueDate = apperrors.NewFieldError("dueDate", "Due date must be a valid date")

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	history    repository.TicketHistoryRepository
	dispatcher events.Dispatcher
	validate   *validation.Validator
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	HistoryRepo repository.TicketHistoryRepository
	Dispatcher  events.Dispatcher
	Validator   *validation.Validator
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	Title       string                `json:"title" validate:"required,min=5,max=200"`
	Description string                `json:"description" validate:"required,min=10"`
	Category    domain.TicketCategory `json:"category" validate:"required,oneof=technical billing feature-request bug-report general"`
	Priority    domain.TicketPriority `json:"priority" validate:"required,oneof=low medium high urgent"`
	Tags        []string              `json:"tags"`
	DueDate     string                `json:"dueDate"`
}

// UpdateTicketInput is a partial ticket update. Nil fields are left unchanged;
// an empty dueDate clears it.
type UpdateTicketInput struct {
	Title       *string                `json:"title" validate:"omitempty,min=5,max=200"`
	Description *string                `json:"description" validate:"omitempty,min=10"`
	Category    *domain.TicketCategory `json:"category" validate:"omitempty,oneof=technical billing feature-request bug-report general"`
	Priority    *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *domain.TicketStatus   `json:"status" validate:"omitempty,oneof=open in-progress waiting-for-customer resolved closed"`
	Tags        []string               `json:"tags"`
	DueDate     *string                `json:"dueDate"`
}

// TicketQuery holds list filters, sorting and paging.
type TicketQuery struct {
	Page      int                   `query:"page" json:"page" validate:"gte=0"`
	Limit     int                   `query:"limit" json:"limit" validate:"gte=0,lte=100"`
	Status    domain.TicketStatus   `query:"status" json:"status" validate:"omitempty,oneof=open in-progress waiting-for-customer resolved closed"`
	Priority  domain.TicketPriority `query:"priority" json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category  domain.TicketCategory `query:"category" json:"category" validate:"omitempty,oneof=technical billing feature-request bug-report general"`
	Search    string                `query:"search" json:"search"`
	SortBy    string                `query:"sortBy" json:"sortBy" validate:"omitempty,oneof=createdAt updatedAt title priority status category dueDate"`
	SortOrder string                `query:"sortOrder" json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// ResponseInput is a new thread message.
type ResponseInput struct {
	Content    string `json:"content" validate:"required"`
	IsInternal bool   `json:"isInternal"`
}

// AttachmentInput is attachment metadata to link to a ticket.
type AttachmentInput struct {
	Filename string `json:"filename" validate:"required,max=255"`
	URL      string `json:"url" validate:"required,url"`
}

// AssignInput names the staff member to assign.
type AssignInput struct {
	AssignedTo string `json:"assignedTo" validate:"required"`
}

// SatisfactionInput is the creator's rating of a finished ticket.
type SatisfactionInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		validate:   v,
		now:        time.Now,
	}
}

// Create files a new open ticket owned by actor.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input CreateTicketInput) (*TicketView, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if !actor.Role.Can(domain.ActionTicketCreate) {
		return nil, apperrors.NewForbidden("")
	}
	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		Status:      domain.TicketStatusOpen,
		CreatorID:   actor.ID,
		Tags:        domain.NormalizeTags(input.Tags),
		DueDate:     dueDate,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, actor, ticket, events.EventTicketCreated, events.TicketCreatedPayload{
		Category: ticket.Category,
		Priority: ticket.Priority,
	})
	return s.view(ctx, actor, ticket)
}

// List returns the page of tickets visible to actor. Users see their own
// tickets, support sees tickets assigned to them or unassigned, admins see all.
func (s *TicketService) List(ctx context.Context, actor *domain.User, query TicketQuery) (*TicketPage, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, err
	}
	page, limit, offset := pageBounds(query.Page, query.Limit)

	filter := repository.TicketFilter{
		Search: strings.TrimSpace(query.Search),
		SortBy: query.SortBy,
		Desc:   query.SortOrder != "asc",
		Limit:  limit,
		Offset: offset,
	}
	switch {
	case !actor.Role.Can(domain.ActionTicketReadAny):
		filter.CreatorID = &actor.ID
	case actor.Role == domain.RoleSupport:
		filter.AssignedToOrUnassigned = &actor.ID
	}
	if query.Status != "" {
		filter.Status = &query.Status
	}
	if query.Priority != "" {
		filter.Priority = &query.Priority
	}
	if query.Category != "" {
		filter.Category = &query.Category
	}

	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, actor, tickets, NewPagination(page, limit, total))
}

// Get returns one ticket if actor may read it.
func (s *TicketService) Get(ctx context.Context, actor *domain.User, id string) (*TicketView, error) {
	ticket, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor, ticket)
}

// Update merges input into the ticket. Staff and the creator may edit.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, id string, input UpdateTicketInput) (*TicketView, error) {
	input.Title = trimPtr(input.Title)
	input.Description = trimPtr(input.Description)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	var dueDate *time.Time
	if input.DueDate != nil {
		parsed, err := parseDueDate(*input.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = parsed
	}

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canModify(actor, ticket) {
		return nil, apperrors.NewForbidden("")
	}

	oldStatus, oldPriority := ticket.Status, ticket.Priority
	changed := []string{}
	if input.Title != nil {
		ticket.Title = *input.Title
		changed = append(changed, "title")
	}
	if input.Description != nil {
		ticket.Description = *input.Description
		changed = append(changed, "description")
	}
	if input.Category != nil {
		ticket.Category = *input.Category
		changed = append(changed, "category")
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
		changed = append(changed, "priority")
	}
	if input.Status != nil {
		if err := ticket.TransitionTo(*input.Status, s.now()); err != nil {
			return nil, apperrors.NewFieldError("status", "Invalid status")
		}
		changed = append(changed, "status")
	}
	if input.Tags != nil {
		ticket.Tags = domain.NormalizeTags(input.Tags)
		changed = append(changed, "tags")
	}
	if input.DueDate != nil {
		ticket.DueDate = dueDate
		changed = append(changed, "dueDate")
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if ticket.Status != oldStatus {
		if err := s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypeStatus, "status", oldStatus, ticket.Status); err != nil {
			return nil, err
		}
		s.publishEvent(ctx, actor, ticket, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		})
	}
	if ticket.Priority != oldPriority {
		if err := s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypePriority, "priority", oldPriority, ticket.Priority); err != nil {
			return nil, err
		}
	}
	s.publishEvent(ctx, actor, ticket, events.EventTicketUpdated, events.TicketUpdatedPayload{Fields: changed})
	return s.view(ctx, actor, ticket)
}

// AddResponse appends a message to the ticket thread. Only staff may post
// internal responses.
func (s *TicketService) AddResponse(ctx context.Context, actor *domain.User, id string, input ResponseInput) (*TicketView, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRespond(actor, ticket) {
		return nil, apperrors.NewForbidden("")
	}
	if input.IsInternal && !actor.Role.Can(domain.ActionTicketRespondInternal) {
		return nil, apperrors.NewForbidden("Only staff can add internal responses")
	}

	response := domain.Response{
		ID:         uuid.NewString(),
		AuthorID:   actor.ID,
		Content:    input.Content,
		IsInternal: input.IsInternal,
		CreatedAt:  s.now(),
	}
	ticket.Responses = append(ticket.Responses, response)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, actor, ticket, events.EventTicketResponseAdded, events.TicketResponseAddedPayload{
		ResponseID:  response.ID,
		AuthorID:    actor.ID,
		IsInternal:  response.IsInternal,
		BodyPreview: stringPreview(response.Content, 120),
	})
	return s.view(ctx, actor, ticket)
}

// AddAttachment links file metadata to the ticket. The file itself lives elsewhere.
func (s *TicketService) AddAttachment(ctx context.Context, actor *domain.User, id string, input AttachmentInput) (*TicketView, error) {
	input.Filename = strings.TrimSpace(input.Filename)
	input.URL = strings.TrimSpace(input.URL)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRespond(actor, ticket) {
		return nil, apperrors.NewForbidden("")
	}

	ticket.Attachments = append(ticket.Attachments, domain.Attachment{
		Filename:   input.Filename,
		URL:        input.URL,
		UploadedBy: actor.ID,
		UploadedAt: s.now(),
	})
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, actor, ticket, events.EventTicketUpdated, events.TicketUpdatedPayload{Fields: []string{"attachments"}})
	return s.view(ctx, actor, ticket)
}

// Assign sets the ticket's assignee to an existing support or admin user.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, id string, input AssignInput) (*TicketView, error) {
	input.AssignedTo = strings.TrimSpace(input.AssignedTo)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	if !actor.Role.Can(domain.ActionTicketAssign) {
		return nil, apperrors.NewForbidden("")
	}
	if !validID(input.AssignedTo) {
		return nil, apperrors.NewFieldError("assignedTo", "Valid user ID required")
	}

	assignee, err := s.users.GetByID(ctx, input.AssignedTo)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if assignee == nil || !assignee.Role.IsStaff() {
		return nil, apperrors.NewFieldError("assignedTo", "Invalid user for assignment")
	}

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := ticket.AssigneeID
	ticket.AssigneeID = &assignee.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	var oldValue any
	if previous != nil {
		oldValue = *previous
	}
	if err := s.recordChange(ctx, actor, ticket.ID, domain.ChangeTypeAssignee, "assignedTo", oldValue, assignee.ID); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, actor, ticket, events.EventTicketAssigned, events.TicketAssignedPayload{
		AssigneeID:         assignee.ID,
		PreviousAssigneeID: previous,
	})
	return s.view(ctx, actor, ticket)
}

// RateSatisfaction stores the creator's rating. Only resolved or closed
// tickets can be rated.
func (s *TicketService) RateSatisfaction(ctx context.Context, actor *domain.User, id string, input SatisfactionInput) (*TicketView, error) {
	input.Comment = strings.TrimSpace(input.Comment)
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}

	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ticket.CreatorID != actor.ID {
		return nil, apperrors.NewForbidden("")
	}
	if !ticket.IsFinished() {
		return nil, apperrors.NewValidationError("Can only rate resolved or closed tickets", nil)
	}

	rating := input.Rating
	ticket.Satisfaction = &rating
	if input.Comment != "" {
		ticket.SatisfactionComment = input.Comment
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, actor, ticket, events.EventTicketSatisfactionRated, events.TicketSatisfactionRatedPayload{Rating: rating})
	return s.view(ctx, actor, ticket)
}

// Delete removes the ticket permanently.
func (s *TicketService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if !actor.Role.Can(domain.ActionTicketDelete) {
		return apperrors.NewForbidden("")
	}
	ticket, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("Ticket")
		}
		return err
	}
	s.publishEvent(ctx, actor, ticket, events.EventTicketDeleted, nil)
	return nil
}

// History returns the audit trail of a ticket the actor may read.
func (s *TicketService) History(ctx context.Context, actor *domain.User, id string) ([]domain.TicketHistory, error) {
	ticket, err := s.loadVisible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	return s.history.ListByTicket(ctx, ticket.ID)
}

func (s *TicketService) load(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, apperrors.NewNotFound("Ticket")
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("Ticket")
		}
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) loadVisible(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.Can(domain.ActionTicketReadAny) && ticket.CreatorID != actor.ID {
		return nil, apperrors.NewForbidden("")
	}
	return ticket, nil
}

func (s *TicketService) canModify(actor *domain.User, ticket *domain.Ticket) bool {
	return actor.Role.Can(domain.ActionTicketUpdateAny) || ticket.CreatorID == actor.ID
}

func (s *TicketService) canRespond(actor *domain.User, ticket *domain.Ticket) bool {
	return actor.Role.Can(domain.ActionTicketRespondAny) || ticket.CreatorID == actor.ID
}

func (s *TicketService) view(ctx context.Context, actor *domain.User, ticket *domain.Ticket) (*TicketView, error) {
	redact(actor, ticket)
	users, err := resolveUsers(ctx, s.users, ticket)
	if err != nil {
		return nil, err
	}
	return &TicketView{Ticket: ticket, Users: users}, nil
}

func (s *TicketService) page(ctx context.Context, actor *domain.User, tickets []domain.Ticket, pagination Pagination) (*TicketPage, error) {
	return buildTicketPage(ctx, s.users, actor, tickets, pagination)
}

func (s *TicketService) recordChange(ctx context.Context, actor *domain.User, ticketID string, changeType domain.TicketChangeType, field string, oldValue, newValue any) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:   ticketID,
		ActorID:    actor.ID,
		ChangeType: changeType,
		OldValue:   map[string]any{field: oldValue},
		NewValue:   map[string]any{field: newValue},
	}
	return s.history.Create(ctx, entry)
}

func (s *TicketService) publishEvent(ctx context.Context, actor *domain.User, ticket *domain.Ticket, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		TicketID:    ticket.ID,
		TicketTitle: ticket.Title,
		CreatorID:   ticket.CreatorID,
		ActorID:     actor.ID,
		Timestamp:   s.now(),
		Payload:     payload,
	})
}
