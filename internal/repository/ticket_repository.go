package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketSearch captures listing parameters. CreatedBy scopes the result set
// to one requester; Term matches title, description or any comment text.
type TicketSearch struct {
	CreatedBy *string
	Term      string
	Limit     int
	Offset    int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// UpdateVersioned applies the ticket's mutable fields and increments the
	// version in a single statement, guarded by the optimistic-lock
	// precondition `version = expectedVersion`. The caller supplies the
	// version it loaded, so a concurrent writer can never be silently
	// overwritten; ErrVersionConflict reports a stale one.
	UpdateVersioned(ctx context.Context, ticket *domain.Ticket, expectedVersion int) error
	Search(ctx context.Context, search TicketSearch) ([]domain.Ticket, int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, sla_deadline, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.SLADeadline, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, title, description, status, created_by, assigned_to,
               sla_deadline, version, created_at, updated_at
        FROM tickets WHERE id=$1`

	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) UpdateVersioned(ctx context.Context, ticket *domain.Ticket, expectedVersion int) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, assigned_to=$4,
            version=version+1, updated_at=NOW()
        WHERE id=$5 AND version=$6
        RETURNING version, updated_at`

	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.AssignedTo,
		ticket.ID,
		expectedVersion,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if err != pgx.ErrNoRows {
		return err
	}

	// Zero rows: distinguish a missing ticket from a stale version.
	if _, getErr := r.GetByID(ctx, ticket.ID); getErr != nil {
		return getErr
	}
	return ErrVersionConflict
}

func (r *ticketRepository) Search(ctx context.Context, search TicketSearch) ([]domain.Ticket, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if search.CreatedBy != nil {
		args = append(args, *search.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if term := strings.TrimSpace(search.Term); term != "" {
		args = append(args, likePattern(term))
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(t.title) LIKE %[1]s ESCAPE '\' OR LOWER(t.description) LIKE %[1]s ESCAPE '\' OR EXISTS (SELECT 1 FROM comments c WHERE c.ticket_id = t.id AND LOWER(c.text) LIKE %[1]s ESCAPE '\'))`, p))
	}
	where := strings.Join(clauses, " AND ")

	// Total reflects the full matching set, counted before pagination.
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tickets t WHERE %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
        SELECT t.id, t.title, t.description, t.status, t.created_by, t.assigned_to,
               t.sla_deadline, t.version, t.created_at, t.updated_at
        FROM tickets t WHERE %s ORDER BY t.created_at DESC LIMIT %d OFFSET %d`,
		where, search.Limit, search.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, 0, err
		}
		result = append(result, ticket)
	}
	return result, total, rows.Err()
}

// likePatternEscaper neutralizes LIKE metacharacters so a search term only
// matches as a literal substring.
var likePatternEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likePatternEscaper.Replace(strings.ToLower(term)) + "%"
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.SLADeadline,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
