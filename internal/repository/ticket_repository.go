package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketRepository persists tickets as whole documents: responses and
// attachments travel with the row, so Update is last-write-wins.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
	CountByCreator(ctx context.Context, userID string) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, category, priority, status, creator_id, assigned_to,
    responses, tags, attachments, due_date, resolved_at, closed_at, satisfaction, satisfaction_comment,
    created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	responses, attachments, err := encodeEmbedded(ticket)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (title, description, category, priority, status, creator_id, assigned_to,
            responses, tags, attachments, due_date, resolved_at, closed_at, satisfaction, satisfaction_comment)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CreatorID,
		ticket.AssigneeID,
		responses,
		tagsOrEmpty(ticket.Tags),
		attachments,
		ticket.DueDate,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.Satisfaction,
		ticket.SatisfactionComment,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	responses, attachments, err := encodeEmbedded(ticket)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET title=$1, description=$2, category=$3, priority=$4, status=$5, assigned_to=$6,
            responses=$7, tags=$8, attachments=$9, due_date=$10, resolved_at=$11, closed_at=$12,
            satisfaction=$13, satisfaction_comment=$14, updated_at=NOW()
        WHERE id=$15
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssigneeID,
		responses,
		tagsOrEmpty(ticket.Tags),
		attachments,
		ticket.DueDate,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.Satisfaction,
		ticket.SatisfactionComment,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) CountByCreator(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE creator_id=$1`, userID).Scan(&n)
	return n, err
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	where, args := ticketWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s %s LIMIT %d OFFSET %d`,
		ticketColumns, where, orderBy(ticketSortColumns, filter.SortBy, filter.Desc), limit, max(filter.Offset, 0))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		responses   []byte
		attachments []byte
		rating      *int16
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.AssigneeID,
		&responses,
		&ticket.Tags,
		&attachments,
		&ticket.DueDate,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&rating,
		&ticket.SatisfactionComment,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(responses, &ticket.Responses); err != nil {
		return nil, fmt.Errorf("decode responses: %w", err)
	}
	if err := json.Unmarshal(attachments, &ticket.Attachments); err != nil {
		return nil, fmt.Errorf("decode attachments: %w", err)
	}
	if rating != nil {
		v := int(*rating)
		ticket.Satisfaction = &v
	}
	return &ticket, nil
}

func encodeEmbedded(ticket *domain.Ticket) ([]byte, []byte, error) {
	responses := ticket.Responses
	if responses == nil {
		responses = []domain.Response{}
	}
	attachments := ticket.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	rb, err := json.Marshal(responses)
	if err != nil {
		return nil, nil, err
	}
	ab, err := json.Marshal(attachments)
	if err != nil {
		return nil, nil, err
	}
	return rb, ab, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
