package memory

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

type historyRecord struct {
	entry domain.TicketHistory
}

type historyRepo struct{ s *Store }

func (r *historyRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return errForeignKey()
	}
	now, _ := r.s.tick()
	entry.ID = newID()
	entry.CreatedAt = now
	r.s.history = append(r.s.history, historyRecord{entry: *entry})
	return nil
}

func (r *historyRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.TicketHistory{}
	for _, h := range r.s.history {
		if h.entry.TicketID == ticketID {
			out = append(out, h.entry)
		}
	}
	return out, nil
}
