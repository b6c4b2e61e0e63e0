package service

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/repository/memory"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	dispatcher *recordingDispatcher
	auth       *AuthService
	ticketSvc  *TicketService
	userSvc    *UserService
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users, tickets, history := memory.NewStore().Repositories()
	f := &fixture{
		users:      users,
		tickets:    tickets,
		history:    history,
		dispatcher: &recordingDispatcher{},
		clock:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.auth = NewAuthService(config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1, BcryptCost: 4}, AuthDependencies{UserRepo: users})
	f.auth.now = f.now
	f.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		UserRepo:    users,
		HistoryRepo: history,
		Dispatcher:  f.dispatcher,
	})
	f.ticketSvc.now = f.now
	f.userSvc = NewUserService(UserDependencies{UserRepo: users, TicketRepo: tickets})
	return f
}

func (f *fixture) now() time.Time { return f.clock }

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) seedUser(t *testing.T, name, email string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("secret1", 4)
	require.NoError(t, err)
	u := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) deactivate(t *testing.T, u *domain.User) {
	t.Helper()
	inactive := false
	_, err := f.users.Patch(context.Background(), u.ID, repository.UserPatch{IsActive: &inactive})
	require.NoError(t, err)
}

func (f *fixture) seedTicket(t *testing.T, creator *domain.User, title string) *domain.Ticket {
	t.Helper()
	view, err := f.ticketSvc.Create(context.Background(), creator, CreateTicketInput{
		Title:       title,
		Description: "Something is not working as expected",
		Category:    domain.TicketCategoryTechnical,
		Priority:    domain.TicketPriorityMedium,
	})
	require.NoError(t, err)
	return view.Ticket
}

func statusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return apperrors.ToDomainError(err).HTTPStatus
}

func strPtr(s string) *string { return &s }
