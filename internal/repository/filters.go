package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// UserFilter narrows user listings. Limit <= 0 returns every match.
type UserFilter struct {
	Roles  []domain.Role
	Active *bool
	Search string
	SortBy string
	Desc   bool
	Limit  int
	Offset int
}

// TicketFilter narrows ticket listings. All set fields are combined with AND.
type TicketFilter struct {
	CreatorID *string
	// AssignedToOrUnassigned matches tickets assigned to this user or to nobody.
	AssignedToOrUnassigned *string
	Status                 *domain.TicketStatus
	Priority               *domain.TicketPriority
	Category               *domain.TicketCategory
	Search                 string
	SortBy                 string
	Desc                   bool
	Limit                  int
	Offset                 int
}

// Sortable ticket fields, keyed by their API name.
var ticketSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"priority":  "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'urgent' THEN 4 END",
	"status":    "CASE status WHEN 'open' THEN 1 WHEN 'in-progress' THEN 2 WHEN 'waiting-for-customer' THEN 3 WHEN 'resolved' THEN 4 WHEN 'closed' THEN 5 END",
	"category":  "category",
	"dueDate":   "due_date",
}

// Sortable user fields, keyed by their API name.
var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"lastLogin": "last_login",
}

func orderBy(columns map[string]string, field string, desc bool) string {
	col, ok := columns[field]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	// id breaks ties so pages stay stable.
	return fmt.Sprintf("ORDER BY %s %s NULLS LAST, id %s", col, dir, dir)
}

// likePattern builds a case-insensitive substring pattern with wildcards escaped.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}

// ticketWhere renders filter as a WHERE body with positional args from $1.
func ticketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.AssignedToOrUnassigned != nil {
		args = append(args, *filter.AssignedToOrUnassigned)
		clauses = append(clauses, fmt.Sprintf("(assigned_to=$%d OR assigned_to IS NULL)", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if strings.TrimSpace(filter.Search) != "" {
		args = append(args, likePattern(filter.Search))
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(title ILIKE %s OR description ILIKE %s OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE %s))",
			p, p, p))
	}
	return strings.Join(clauses, " AND "), args
}

// userWhere renders filter as a WHERE body with positional args from $1.
func userWhere(filter UserFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		args = append(args, roles)
		clauses = append(clauses, fmt.Sprintf("role = ANY($%d)", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if strings.TrimSpace(filter.Search) != "" {
		args = append(args, likePattern(filter.Search))
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s OR company ILIKE %s)", p, p, p))
	}
	return strings.Join(clauses, " AND "), args
}
