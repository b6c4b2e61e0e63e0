package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket.created"
	EventTicketUpdated           EventType = "ticket.updated"
	EventTicketStatusChanged     EventType = "ticket.status_changed"
	EventTicketAssigned          EventType = "ticket.assigned"
	EventTicketResponseAdded     EventType = "ticket.response_added"
	EventTicketSatisfactionRated EventType = "ticket.satisfaction_rated"
	EventTicketDeleted           EventType = "ticket.deleted"
)

// AllTicketEvents lists every ticket event type.
var AllTicketEvents = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventTicketResponseAdded,
	EventTicketSatisfactionRated,
	EventTicketDeleted,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	TicketID    string    `json:"ticketId"`
	TicketTitle string    `json:"ticketTitle"`
	CreatorID   string    `json:"creatorId"`
	ActorID     string    `json:"actorId"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketUpdatedPayload lists the fields that changed.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"oldStatus"`
	NewStatus domain.TicketStatus `json:"newStatus"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID         string  `json:"assigneeId"`
	PreviousAssigneeID *string `json:"previousAssigneeId,omitempty"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID  string `json:"responseId"`
	AuthorID    string `json:"authorId"`
	IsInternal  bool   `json:"isInternal"`
	BodyPreview string `json:"bodyPreview"`
}

// TicketSatisfactionRatedPayload payload.
type TicketSatisfactionRatedPayload struct {
	Rating int `json:"rating"`
}
