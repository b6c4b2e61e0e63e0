// Package memory provides map-backed repositories used when no database is
// configured and in tests.
package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/support-desk/internal/repository"
)

// Store holds all in-memory tables behind one lock so cross-table checks stay consistent.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	users   map[string]userRecord
	tickets map[string]ticketRecord
	history []historyRecord
	seq     int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:     time.Now,
		users:   make(map[string]userRecord),
		tickets: make(map[string]ticketRecord),
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() (repository.UserRepository, repository.TicketRepository, repository.TicketHistoryRepository) {
	return &userRepo{s}, &ticketRepo{s}, &historyRepo{s}
}

// tick returns a strictly increasing timestamp so insertion order survives sorting.
func (s *Store) tick() (time.Time, int64) {
	s.seq++
	return s.now().Add(time.Duration(s.seq) * time.Microsecond), s.seq
}

func newID() string { return uuid.NewString() }

var errNotFound = pgx.ErrNoRows

func errDuplicate(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

func errForeignKey() error {
	return &pgconn.PgError{Code: "23503", Message: "update or delete violates foreign key constraint"}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareTimePtr orders nil after any set time.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}
