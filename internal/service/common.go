package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Pagination describes a page of a larger result set.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// NewPagination computes page metadata for total items split by limit.
func NewPagination(page, limit, total int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNextPage: page*limit < total,
		HasPrevPage: page > 1,
	}
}

// pageBounds applies defaults and returns page, limit and offset.
func pageBounds(page, limit int) (int, int, int) {
	if page <= 0 {
		page = defaultPage
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit
}

// validID reports whether id is a well-formed UUID. Malformed ids are
// treated as missing records rather than bad requests.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// TicketPage is one page of tickets with every referenced user resolved.
type TicketPage struct {
	Tickets    []domain.Ticket
	Users      map[string]*domain.User
	Pagination Pagination
}

// TicketView is a single ticket with every referenced user resolved.
type TicketView struct {
	Ticket *domain.Ticket
	Users  map[string]*domain.User
}

// redact drops internal responses unless viewer may see them.
func redact(viewer *domain.User, ticket *domain.Ticket) {
	if !viewer.Role.Can(domain.ActionTicketViewInternal) {
		ticket.Responses = ticket.PublicResponses()
	}
}

// resolveUsers loads the creator, assignee, response authors and uploaders
// referenced by tickets.
func resolveUsers(ctx context.Context, users repository.UserRepository, tickets ...*domain.Ticket) (map[string]*domain.User, error) {
	ids := []string{}
	seen := map[string]struct{}{}
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, t := range tickets {
		add(t.CreatorID)
		if t.AssigneeID != nil {
			add(*t.AssigneeID)
		}
		for _, r := range t.Responses {
			add(r.AuthorID)
		}
		for _, a := range t.Attachments {
			add(a.UploadedBy)
		}
	}

	found, err := users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.User, len(found))
	for i := range found {
		out[found[i].ID] = &found[i]
	}
	return out, nil
}

func buildTicketPage(ctx context.Context, users repository.UserRepository, viewer *domain.User, tickets []domain.Ticket, pagination Pagination) (*TicketPage, error) {
	ptrs := make([]*domain.Ticket, len(tickets))
	for i := range tickets {
		redact(viewer, &tickets[i])
		ptrs[i] = &tickets[i]
	}
	resolved, err := resolveUsers(ctx, users, ptrs...)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Tickets: tickets, Users: resolved, Pagination: pagination}, nil
}

func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, errInvalidDueDate
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
