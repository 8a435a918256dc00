package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const ticketColumns = `id, tenant_id, title, description, status, priority, requester_id, assignee_id,
	sla_clock, ola_clock, version, created_at, updated_at, closed_at`

// TicketRepository is the secondary adapter for ticket persistence.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

// scanTicket maps one tickets row, including both JSONB clocks.
func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t           domain.Ticket
		description pgtype.Text
		status      string
		priority    string
		assigneeID  pgtype.UUID
		slaRaw      []byte
		olaRaw      []byte
		updatedAt   pgtype.Timestamptz
		closedAt    pgtype.Timestamptz
	)
	if err := row.Scan(
		&t.ID, &t.TenantID, &t.Title, &description, &status, &priority, &t.RequesterID, &assigneeID,
		&slaRaw, &olaRaw, &t.Version, &t.CreatedAt, &updatedAt, &closedAt,
	); err != nil {
		return nil, err
	}

	sla, err := decodeClock(slaRaw)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", t.ID, err)
	}
	ola, err := decodeClock(olaRaw)
	if err != nil {
		return nil, fmt.Errorf("ticket %d: %w", t.ID, err)
	}

	t.Description = fromText(description)
	t.Status = domain.TicketStatus(status)
	t.Priority = domain.TicketPriority(priority)
	t.AssigneeID = fromNullUUID(assigneeID)
	t.SLA = sla
	t.OLA = ola
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = fromNullTime(updatedAt)
	t.ClosedAt = fromNullTime(closedAt)
	return &t, nil
}

func scanTickets(rows pgx.Rows) ([]*domain.Ticket, error) {
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Create persists a new ticket entity together with its started clocks.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	slaRaw, err := encodeClock(&ticket.SLA)
	if err != nil {
		return nil, err
	}
	olaRaw, err := encodeClock(&ticket.OLA)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tickets (tenant_id, title, description, status, priority, requester_id, assignee_id,
			sla_clock, ola_clock, version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, $10)
		RETURNING ` + ticketColumns

	row := GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		ticket.TenantID,
		ticket.Title,
		toText(ticket.Description),
		string(ticket.Status),
		string(ticket.Priority),
		ticket.RequesterID,
		toNullUUID(ticket.AssigneeID),
		slaRaw,
		olaRaw,
		ticket.CreatedAt,
	)
	return scanTicket(row)
}

// GetByID retrieves a single ticket by its ID.
func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// Update persists changes to an existing ticket. The write only applies when
// the stored version still equals ticket.Version; the version is bumped.
func (r *TicketRepository) Update(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	slaRaw, err := encodeClock(&ticket.SLA)
	if err != nil {
		return nil, err
	}
	olaRaw, err := encodeClock(&ticket.OLA)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE tickets
		SET title = $2, description = $3, status = $4, priority = $5, assignee_id = $6,
			sla_clock = $7, ola_clock = $8, updated_at = $9, closed_at = $10, version = version + 1
		WHERE id = $1 AND version = $11
		RETURNING ` + ticketColumns

	db := GetDBTX(ctx, r.pool)
	updated, err := scanTicket(db.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		toText(ticket.Description),
		string(ticket.Status),
		string(ticket.Priority),
		toNullUUID(ticket.AssigneeID),
		slaRaw,
		olaRaw,
		toNullTime(ticket.UpdatedAt),
		toNullTime(ticket.ClosedAt),
		ticket.Version,
	))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, ticket.ID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrTicketNotFound
	}
	return nil, apperrors.ErrConflict
}

// List retrieves a page of tenant tickets, newest first.
func (r *TicketRepository) List(ctx context.Context, params ports.ListTicketsRepoParams) ([]*domain.Ticket, error) {
	where, args := buildTicketFilter(params)

	args = append(args, params.Limit)
	limitArg := len(args)
	args = append(args, params.Offset)
	offsetArg := len(args)

	query := fmt.Sprintf(`SELECT %s FROM tickets %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		ticketColumns, where, limitArg, offsetArg)

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

// Count returns how many tickets match the filters, ignoring pagination.
func (r *TicketRepository) Count(ctx context.Context, params ports.ListTicketsRepoParams) (int64, error) {
	where, args := buildTicketFilter(params)

	var total int64
	if err := GetDBTX(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM tickets `+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ListActive returns the tenant's tickets that still have running clocks.
func (r *TicketRepository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE tenant_id = $1 AND status NOT IN ($2, $3)
		ORDER BY id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, tenantID, string(domain.StatusResolved), string(domain.StatusClosed))
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}

// buildTicketFilter renders the WHERE clause shared by List and Count.
func buildTicketFilter(params ports.ListTicketsRepoParams) (string, []any) {
	args := []any{params.TenantID}
	clauses := []string{"tenant_id = $1"}

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if params.RequesterID != nil {
		add("requester_id = $%d", *params.RequesterID)
	}
	if params.Status != nil {
		add("status = $%d", string(*params.Status))
	}
	if params.Priority != nil {
		add("priority = $%d", string(*params.Priority))
	}
	if params.AssigneeID != nil {
		add("assignee_id = $%d", *params.AssigneeID)
	}
	if params.Unassigned {
		clauses = append(clauses, "assignee_id IS NULL")
	}
	if params.CreatedFrom != nil {
		add("created_at >= $%d", *params.CreatedFrom)
	}
	if params.CreatedTo != nil {
		add("created_at < $%d", *params.CreatedTo)
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}
