package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/mailer"
)

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, payload)
	return p.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

// slowMailer stands in for an SMTP relay that takes a while to answer.
type slowMailer struct {
	fakeMailer
	delay time.Duration
}

func (m *slowMailer) Send(ctx context.Context, msg mailer.Message) error {
	time.Sleep(m.delay)
	return m.fakeMailer.Send(ctx, msg)
}

func (m *slowMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newNotifiedFixture(t *testing.T, publisher *fakePublisher, mail *fakeMailer, logger *zap.Logger) *fixture {
	t.Helper()
	f := newFixture(t)
	dispatcher := events.NewInMemoryDispatcher(logger)
	f.ticketSvc.dispatcher = dispatcher
	deps := NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     config.NotificationConfig{RedisChannel: "support-desk:events"},
		UserRepo:   f.users,
	}
	if publisher != nil {
		deps.Publisher = publisher
	}
	if mail != nil {
		deps.Mailer = mail
	}
	NewNotificationService(deps).RegisterHandlers()
	return f
}

func TestNotificationsPublishEveryEvent(t *testing.T) {
	publisher := &fakePublisher{}
	f := newNotifiedFixture(t, publisher, nil, zap.NewNop())
	jo := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)
	ticket := f.seedTicket(t, jo, "Printer on fire")

	require.Len(t, publisher.payloads, 1)
	assert.Equal(t, "support-desk:events", publisher.channels[0])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &decoded))
	assert.Equal(t, string(events.EventTicketCreated), decoded["type"])
	assert.Equal(t, ticket.ID, decoded["ticketId"])
}

func TestNotificationsEmailCreatorOnStaffResponse(t *testing.T) {
	mail := &fakeMailer{}
	f := newNotifiedFixture(t, nil, mail, zap.NewNop())
	ctx := context.Background()
	jo := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)
	sam := f.seedUser(t, "Sam Support", "sam@example.com", domain.RoleSupport)
	ticket := f.seedTicket(t, jo, "Printer on fire")

	_, err := f.ticketSvc.AddResponse(ctx, sam, ticket.ID, ResponseInput{Content: "internal note", IsInternal: true})
	require.NoError(t, err)
	_, err = f.ticketSvc.AddResponse(ctx, jo, ticket.ID, ResponseInput{Content: "any news?"})
	require.NoError(t, err)
	assert.Empty(t, mail.sent)

	_, err = f.ticketSvc.AddResponse(ctx, sam, ticket.ID, ResponseInput{Content: "Fixed the driver"})
	require.NoError(t, err)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, []string{"jo@example.com"}, mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Body, "Fixed the driver")

	_, err = f.ticketSvc.Assign(ctx, sam, ticket.ID, AssignInput{AssignedTo: sam.ID})
	require.NoError(t, err)
	assert.Len(t, mail.sent, 1)

	_, err = f.ticketSvc.Update(ctx, sam, ticket.ID, UpdateTicketInput{Status: statusPtr(domain.TicketStatusResolved)})
	require.NoError(t, err)
	require.Len(t, mail.sent, 2)
	assert.Contains(t, mail.sent[1].Subject, "status changed")
}

func TestNotificationFailuresDoNotFailTheOperation(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	publisher := &fakePublisher{err: errors.New("redis down")}
	f := newNotifiedFixture(t, publisher, nil, zap.New(core))
	jo := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)

	_, err := f.ticketSvc.Create(context.Background(), jo, CreateTicketInput{
		Title:       "Printer on fire",
		Description: "Smoke is coming out of the tray",
		Category:    domain.TicketCategoryTechnical,
		Priority:    domain.TicketPriorityUrgent,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}

func TestQueuedEmailDoesNotDelayTicketWrites(t *testing.T) {
	relay := &slowMailer{delay: 2 * time.Second}
	outbox := mailer.NewQueue(relay, 8, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go outbox.Run(ctx)

	f := newFixture(t)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	f.ticketSvc.dispatcher = dispatcher
	NewNotificationService(NotificationDependencies{
		Dispatcher: dispatcher,
		UserRepo:   f.users,
		Mailer:     outbox,
	}).RegisterHandlers()

	jo := f.seedUser(t, "Jo Lee", "jo@example.com", domain.RoleUser)
	sam := f.seedUser(t, "Sam Support", "sam@example.com", domain.RoleSupport)
	ticket := f.seedTicket(t, jo, "Printer on fire")

	start := time.Now()
	_, err := f.ticketSvc.AddResponse(context.Background(), sam, ticket.ID, ResponseInput{Content: "Looking into it"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	assert.Eventually(t, func() bool { return relay.count() == 1 }, 5*time.Second, 50*time.Millisecond)
}
