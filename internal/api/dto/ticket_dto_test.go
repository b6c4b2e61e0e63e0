package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestNewTicketResponsePopulatesUsers(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	jo := &domain.User{ID: "u1", Name: "Jo Lee", Email: "jo@example.com", Company: "Acme", Role: domain.RoleUser}
	sam := &domain.User{ID: "u2", Name: "Sam Support", Email: "sam@example.com", Role: domain.RoleSupport}
	assignee := sam.ID
	ticket := &domain.Ticket{
		ID:         "t1",
		Title:      "Cannot log in",
		Status:     domain.TicketStatusOpen,
		CreatorID:  jo.ID,
		AssigneeID: &assignee,
		Responses: []domain.Response{
			{ID: "r1", AuthorID: sam.ID, Content: "On it", CreatedAt: now},
			{ID: "r2", AuthorID: "gone", Content: "Hello", CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp := NewTicketResponse(ticket, map[string]*domain.User{jo.ID: jo, sam.ID: sam})

	assert.Equal(t, CreatorSummary{ID: "u1", Name: "Jo Lee", Email: "jo@example.com", Company: "Acme"}, resp.Creator)
	require.NotNil(t, resp.AssignedTo)
	assert.Equal(t, "Sam Support", resp.AssignedTo.Name)
	require.Len(t, resp.Responses, 2)
	assert.Equal(t, domain.RoleSupport, resp.Responses[0].Author.Role)
	assert.Equal(t, AuthorSummary{ID: "gone"}, resp.Responses[1].Author)
	assert.Equal(t, []string{}, resp.Tags)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	for _, key := range []string{"creator", "assignedTo", "resolvedAt", "closedAt", "satisfaction"} {
		assert.Contains(t, body, key)
	}
	first := body["responses"].([]any)[0].(map[string]any)
	assert.Contains(t, first, "isInternal")
}

func TestUserResponseOmitsPassword(t *testing.T) {
	raw, err := json.Marshal(NewUserResponse(&domain.User{ID: "u1", Name: "Jo", PasswordHash: "secret-hash"}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-hash")
	assert.NotContains(t, string(raw), "password")
}
