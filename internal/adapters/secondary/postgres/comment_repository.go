package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// CommentRepository handles database operations for comments.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// Ensure implementation matches the interface.
var _ ports.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	if err := row.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

// Create persists a new comment to the database.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	query := `
		INSERT INTO comments (ticket_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, ticket_id, author_id, body, created_at`

	return scanComment(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		comment.TicketID, comment.AuthorID, comment.Body, comment.CreatedAt,
	))
}

// ListByTicketID retrieves all comments for a specific ticket, ordered by creation.
func (r *CommentRepository) ListByTicketID(ctx context.Context, ticketID int64) ([]*domain.Comment, error) {
	query := `
		SELECT id, ticket_id, author_id, body, created_at
		FROM comments
		WHERE ticket_id = $1
		ORDER BY created_at, id`

	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}
