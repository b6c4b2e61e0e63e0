package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

type ticketRecord struct {
	ticket domain.Ticket
	seq    int64
}

type ticketRepo struct{ s *Store }

var priorityRank = map[domain.TicketPriority]int{
	domain.TicketPriorityLow:    1,
	domain.TicketPriorityMedium: 2,
	domain.TicketPriorityHigh:   3,
	domain.TicketPriorityUrgent: 4,
}

var statusRank = map[domain.TicketStatus]int{
	domain.TicketStatusOpen:               1,
	domain.TicketStatusInProgress:         2,
	domain.TicketStatusWaitingForCustomer: 3,
	domain.TicketStatusResolved:           4,
	domain.TicketStatusClosed:             5,
}

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[ticket.CreatorID]; !ok {
		return errForeignKey()
	}
	now, seq := r.s.tick()
	ticket.ID = newID()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = ticketRecord{ticket: cloneTicket(*ticket), seq: seq}
	return nil
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.tickets[ticket.ID]
	if !ok {
		return errNotFound
	}
	now, _ := r.s.tick()
	ticket.CreatorID = rec.ticket.CreatorID
	ticket.CreatedAt = rec.ticket.CreatedAt
	ticket.UpdatedAt = now
	rec.ticket = cloneTicket(*ticket)
	r.s.tickets[ticket.ID] = rec
	return nil
}

func (r *ticketRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return errNotFound
	}
	delete(r.s.tickets, id)
	kept := r.s.history[:0]
	for _, h := range r.s.history {
		if h.entry.TicketID != id {
			kept = append(kept, h)
		}
	}
	r.s.history = kept
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.tickets[id]
	if !ok {
		return nil, errNotFound
	}
	ticket := cloneTicket(rec.ticket)
	return &ticket, nil
}

func (r *ticketRepo) CountByCreator(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, rec := range r.s.tickets {
		if rec.ticket.CreatorID == userID {
			n++
		}
	}
	return n, nil
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := []ticketRecord{}
	for _, rec := range r.s.tickets {
		if matchTicket(rec.ticket, filter) {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		c := compareTickets(matched[i], matched[j], filter.SortBy)
		if filter.Desc {
			return c > 0
		}
		return c < 0
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	out := []domain.Ticket{}
	for _, rec := range page(matched, limit, filter.Offset) {
		out = append(out, cloneTicket(rec.ticket))
	}
	return out, len(matched), nil
}

func matchTicket(t domain.Ticket, f repository.TicketFilter) bool {
	if f.CreatorID != nil && t.CreatorID != *f.CreatorID {
		return false
	}
	if f.AssignedToOrUnassigned != nil && t.AssigneeID != nil && *t.AssigneeID != *f.AssignedToOrUnassigned {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		hit := containsFold(t.Title, term) || containsFold(t.Description, term)
		for _, tag := range t.Tags {
			hit = hit || containsFold(tag, term)
		}
		if !hit {
			return false
		}
	}
	return true
}

func compareTickets(a, b ticketRecord, field string) int {
	var c int
	switch field {
	case "updatedAt":
		c = a.ticket.UpdatedAt.Compare(b.ticket.UpdatedAt)
	case "title":
		c = strings.Compare(a.ticket.Title, b.ticket.Title)
	case "priority":
		c = priorityRank[a.ticket.Priority] - priorityRank[b.ticket.Priority]
	case "status":
		c = statusRank[a.ticket.Status] - statusRank[b.ticket.Status]
	case "category":
		c = strings.Compare(string(a.ticket.Category), string(b.ticket.Category))
	case "dueDate":
		c = compareTimePtr(a.ticket.DueDate, b.ticket.DueDate)
	default:
		c = a.ticket.CreatedAt.Compare(b.ticket.CreatedAt)
	}
	if c != 0 {
		return c
	}
	return compareInt(a.seq, b.seq)
}

// cloneTicket copies the slices so callers cannot mutate stored state.
func cloneTicket(t domain.Ticket) domain.Ticket {
	t.Responses = append([]domain.Response(nil), t.Responses...)
	t.Attachments = append([]domain.Attachment(nil), t.Attachments...)
	t.Tags = append([]string(nil), t.Tags...)
	return t
}
