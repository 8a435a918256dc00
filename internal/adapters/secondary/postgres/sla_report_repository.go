package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// SLAReportRepository reads the rows behind compliance reports. Clock
// evaluation happens in the domain, so this only streams tickets.
type SLAReportRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SLAReportRepository = (*SLAReportRepository)(nil)

func NewSLAReportRepository(pool *pgxpool.Pool) *SLAReportRepository {
	return &SLAReportRepository{pool: pool}
}

// CountByStatus counts the tickets created at or after since, one entry per
// status, zero-filled.
func (r *SLAReportRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]domain.StatusCount, error) {
	const query = `
SELECT status, COUNT(*)
FROM tickets
WHERE tenant_id = $1 AND created_at >= $2
GROUP BY status
`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int64)
	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[domain.TicketStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := []domain.TicketStatus{
		domain.StatusOpen,
		domain.StatusInProgress,
		domain.StatusWaitingOnCustomer,
		domain.StatusResolved,
		domain.StatusClosed,
	}
	result := make([]domain.StatusCount, 0, len(statuses))
	for _, status := range statuses {
		result = append(result, domain.StatusCount{Status: status, Count: counts[status]})
	}
	return result, nil
}

// ListCreatedSince returns the tenant's tickets created at or after since.
func (r *SLAReportRepository) ListCreatedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + `
		FROM tickets
		WHERE tenant_id = $1 AND created_at >= $2
		ORDER BY id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, tenantID, since)
	if err != nil {
		return nil, err
	}
	return scanTickets(rows)
}
