package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreatorSummary is the populated ticket creator.
type CreatorSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Company string `json:"company,omitempty"`
}

// UserRef is a populated user reference.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// AuthorSummary is the populated author of a response.
type AuthorSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	Role  domain.Role `json:"role,omitempty"`
}

// ResponseResponse is one thread message.
type ResponseResponse struct {
	ID         string        `json:"id"`
	Author     AuthorSummary `json:"author"`
	Content    string        `json:"content"`
	IsInternal bool          `json:"isInternal"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// AttachmentResponse is linked file metadata.
type AttachmentResponse struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedBy UserRef   `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// TicketResponse is the full ticket document with users populated.
type TicketResponse struct {
	ID                  string                `json:"id"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	Category            domain.TicketCategory `json:"category"`
	Priority            domain.TicketPriority `json:"priority"`
	Status              domain.TicketStatus   `json:"status"`
	Creator             CreatorSummary        `json:"creator"`
	AssignedTo          *UserRef              `json:"assignedTo"`
	Responses           []ResponseResponse    `json:"responses"`
	Tags                []string              `json:"tags"`
	Attachments         []AttachmentResponse  `json:"attachments"`
	DueDate             *time.Time            `json:"dueDate"`
	ResolvedAt          *time.Time            `json:"resolvedAt"`
	ClosedAt            *time.Time            `json:"closedAt"`
	Satisfaction        *int                  `json:"satisfaction"`
	SatisfactionComment string                `json:"satisfactionComment,omitempty"`
	CreatedAt           time.Time             `json:"createdAt"`
	UpdatedAt           time.Time             `json:"updatedAt"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	TicketID   string                  `json:"ticketId"`
	ChangedBy  string                  `json:"changedBy"`
	ChangeType domain.TicketChangeType `json:"changeType"`
	OldValue   map[string]any          `json:"oldValue"`
	NewValue   map[string]any          `json:"newValue"`
	CreatedAt  time.Time               `json:"createdAt"`
}

// NewTicketResponse presents t, filling user references from users. Ids
// missing from users are presented without details.
func NewTicketResponse(t *domain.Ticket, users map[string]*domain.User) TicketResponse {
	resp := TicketResponse{
		ID:                  t.ID,
		Title:               t.Title,
		Description:         t.Description,
		Category:            t.Category,
		Priority:            t.Priority,
		Status:              t.Status,
		Creator:             creatorSummary(t.CreatorID, users),
		Responses:           make([]ResponseResponse, 0, len(t.Responses)),
		Tags:                t.Tags,
		Attachments:         make([]AttachmentResponse, 0, len(t.Attachments)),
		DueDate:             t.DueDate,
		ResolvedAt:          t.ResolvedAt,
		ClosedAt:            t.ClosedAt,
		Satisfaction:        t.Satisfaction,
		SatisfactionComment: t.SatisfactionComment,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if t.AssigneeID != nil {
		ref := userRef(*t.AssigneeID, users)
		resp.AssignedTo = &ref
	}
	for _, r := range t.Responses {
		resp.Responses = append(resp.Responses, ResponseResponse{
			ID:         r.ID,
			Author:     authorSummary(r.AuthorID, users),
			Content:    r.Content,
			IsInternal: r.IsInternal,
			CreatedAt:  r.CreatedAt,
		})
	}
	for _, a := range t.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			Filename:   a.Filename,
			URL:        a.URL,
			UploadedBy: userRef(a.UploadedBy, users),
			UploadedAt: a.UploadedAt,
		})
	}
	return resp
}

// NewTicketResponses presents a page of tickets.
func NewTicketResponses(tickets []domain.Ticket, users map[string]*domain.User) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i], users))
	}
	return out
}

// NewTicketHistoryResponses presents audit entries.
func NewTicketHistoryResponses(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TicketHistoryResponse{
			ID:         e.ID,
			TicketID:   e.TicketID,
			ChangedBy:  e.ActorID,
			ChangeType: e.ChangeType,
			OldValue:   e.OldValue,
			NewValue:   e.NewValue,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

func creatorSummary(id string, users map[string]*domain.User) CreatorSummary {
	u, ok := users[id]
	if !ok {
		return CreatorSummary{ID: id}
	}
	return CreatorSummary{ID: u.ID, Name: u.Name, Email: u.Email, Company: u.Company}
}

func userRef(id string, users map[string]*domain.User) UserRef {
	u, ok := users[id]
	if !ok {
		return UserRef{ID: id}
	}
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
}

func authorSummary(id string, users map[string]*domain.User) AuthorSummary {
	u, ok := users[id]
	if !ok {
		return AuthorSummary{ID: id}
	}
	return AuthorSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
