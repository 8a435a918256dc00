package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

const eventColumns = `id, ticket_id, type, payload, actor_id, created_at`

// TicketEventRepository handles persistence for ticket events.
type TicketEventRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TicketEventRepository = (*TicketEventRepository)(nil)

// NewTicketEventRepository creates a new ticket event repository.
func NewTicketEventRepository(pool *pgxpool.Pool) *TicketEventRepository {
	return &TicketEventRepository{pool: pool}
}

// scanEvent maps a ticket_events row. System events have no actor and come
// back with uuid.Nil.
func scanEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e         domain.Event
		eventType string
		payload   []byte
		actorID   pgtype.UUID
	)
	if err := row.Scan(&e.ID, &e.TicketID, &eventType, &payload, &actorID, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Type = domain.EventType(eventType)
	e.Payload = json.RawMessage(payload)
	if actorID.Valid {
		e.ActorID = actorID.Bytes
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

// Create persists a new ticket event.
func (r *TicketEventRepository) Create(ctx context.Context, event *domain.Event) (*domain.Event, error) {
	query := `
		INSERT INTO ticket_events (ticket_id, type, payload, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + eventColumns

	return scanEvent(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		event.TicketID,
		string(event.Type),
		[]byte(event.Payload),
		toNullUUID(&event.ActorID),
		event.CreatedAt,
	))
}

// ListByTicketID retrieves events for a ticket after a cursor.
func (r *TicketEventRepository) ListByTicketID(ctx context.Context, ticketID int64, afterID int64, limit int) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM ticket_events
		WHERE ticket_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, ticketID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
