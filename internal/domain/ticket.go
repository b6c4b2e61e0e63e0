package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen               TicketStatus = "open"
	TicketStatusInProgress         TicketStatus = "in-progress"
	TicketStatusWaitingForCustomer TicketStatus = "waiting-for-customer"
	TicketStatusResolved           TicketStatus = "resolved"
	TicketStatusClosed             TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusWaitingForCustomer,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// TicketCategory classifies what a ticket is about.
type TicketCategory string

const (
	TicketCategoryTechnical      TicketCategory = "technical"
	TicketCategoryBilling        TicketCategory = "billing"
	TicketCategoryFeatureRequest TicketCategory = "feature-request"
	TicketCategoryBugReport      TicketCategory = "bug-report"
	TicketCategoryGeneral        TicketCategory = "general"
)

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	switch c {
	case TicketCategoryTechnical, TicketCategoryBilling, TicketCategoryFeatureRequest,
		TicketCategoryBugReport, TicketCategoryGeneral:
		return true
	}
	return false
}

// Response is a message in a ticket thread. It is owned by its ticket.
type Response struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"isInternal"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Attachment is metadata about a file linked to a ticket.
type Attachment struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Ticket is the aggregate for support requests. Responses and attachments
// are stored with the ticket and keep insertion order.
type Ticket struct {
	ID                  string
	Title               string
	Description         string
	Category            TicketCategory
	Priority            TicketPriority
	Status              TicketStatus
	CreatorID           string
	AssigneeID          *string
	Responses           []Response
	Tags                []string
	Attachments         []Attachment
	DueDate             *time.Time
	ResolvedAt          *time.Time
	ClosedAt            *time.Time
	Satisfaction        *int
	SatisfactionComment string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TransitionTo moves the ticket to status. ResolvedAt and ClosedAt are
// stamped on the first entry into those states and never overwritten.
func (t *Ticket) TransitionTo(status TicketStatus, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("unknown ticket status %q", status)
	}
	t.Status = status
	switch status {
	case TicketStatusResolved:
		if t.ResolvedAt == nil {
			stamp := now
			t.ResolvedAt = &stamp
		}
	case TicketStatusClosed:
		if t.ClosedAt == nil {
			stamp := now
			t.ClosedAt = &stamp
		}
	}
	return nil
}

// IsFinished reports whether the ticket is resolved or closed.
func (t *Ticket) IsFinished() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// PublicResponses returns the responses visible to non-staff callers.
func (t *Ticket) PublicResponses() []Response {
	out := make([]Response, 0, len(t.Responses))
	for _, r := range t.Responses {
		if !r.IsInternal {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeTags trims tags, drops empty ones and collapses duplicates,
// keeping the order of first occurrence.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
