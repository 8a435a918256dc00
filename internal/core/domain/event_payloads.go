package domain

import (
	"strconv"
	"time"
)

// CommentSnapshot matches the API response shape for comments.
type CommentSnapshot struct {
	ID        string `json:"id"`
	TicketID  int64  `json:"ticketId"`
	AuthorID  string `json:"authorId"`
	Body      string `json:"body"`
	CreatedAt string `json:"createdAt"`
}

// TargetSnapshot is the stored shape of a clock target.
type TargetSnapshot struct {
	BudgetMs int64   `json:"budgetMs"`
	Due      string  `json:"due"`
	MetAt    *string `json:"metAt"`
}

// ClockSnapshot is the stored shape of a clock.
type ClockSnapshot struct {
	State      ClockState      `json:"state"`
	StartedAt  *string         `json:"startedAt"`
	PausedAt   *string         `json:"pausedAt"`
	PausedMs   int64           `json:"pausedMs"`
	Response   *TargetSnapshot `json:"response,omitempty"`
	Resolution *TargetSnapshot `json:"resolution,omitempty"`
}

// TicketSnapshot matches the API response shape for tickets.
type TicketSnapshot struct {
	ID          int64         `json:"id"`
	TenantID    string        `json:"tenantId"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      string        `json:"status"`
	Priority    string        `json:"priority"`
	RequesterID string        `json:"requesterId"`
	AssigneeID  *string       `json:"assigneeId"`
	SLA         ClockSnapshot `json:"sla"`
	OLA         ClockSnapshot `json:"ola"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   *string       `json:"updatedAt"`
	ClosedAt    *string       `json:"closedAt"`
}

// BreachSnapshot is the payload of an SLA_BREACHED event.
type BreachSnapshot struct {
	TicketID int64      `json:"ticketId"`
	Clock    ClockKind  `json:"clock"`
	Target   TargetName `json:"target"`
	Due      string     `json:"due"`
	Priority string     `json:"priority"`
	Detected string     `json:"detectedAt"`
}

// NewCommentSnapshot builds a comment snapshot from a domain comment.
func NewCommentSnapshot(comment *Comment) CommentSnapshot {
	return CommentSnapshot{
		ID:        strconv.FormatInt(comment.ID, 10),
		TicketID:  comment.TicketID,
		AuthorID:  comment.AuthorID.String(),
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewTicketSnapshot builds a ticket snapshot from a domain ticket.
func NewTicketSnapshot(ticket *Ticket) TicketSnapshot {
	var assigneeID *string
	if ticket.AssigneeID != nil {
		value := ticket.AssigneeID.String()
		assigneeID = &value
	}

	return TicketSnapshot{
		ID:          ticket.ID,
		TenantID:    ticket.TenantID.String(),
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      string(ticket.Status),
		Priority:    string(ticket.Priority),
		RequesterID: ticket.RequesterID.String(),
		AssigneeID:  assigneeID,
		SLA:         NewClockSnapshot(&ticket.SLA),
		OLA:         NewClockSnapshot(&ticket.OLA),
		CreatedAt:   ticket.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   formatTimePtr(ticket.UpdatedAt, time.RFC3339),
		ClosedAt:    formatTimePtr(ticket.ClosedAt, time.RFC3339),
	}
}

// NewClockSnapshot builds the stored shape of a clock. Times keep
// millisecond precision so a round trip through storage is exact.
func NewClockSnapshot(c *Clock) ClockSnapshot {
	snapshot := ClockSnapshot{
		State:     c.State(),
		StartedAt: formatTimePtr(c.StartedAt, time.RFC3339Nano),
		PausedAt:  formatTimePtr(c.PausedAt, time.RFC3339Nano),
		PausedMs:  c.PausedFor.Milliseconds(),
	}
	if !c.Started() {
		return snapshot
	}
	if c.Response != nil {
		snapshot.Response = newTargetSnapshot(c.Response)
	}
	snapshot.Resolution = newTargetSnapshot(&c.Resolution)
	return snapshot
}

// Clock rebuilds a clock from its stored shape.
func (s ClockSnapshot) Clock() (Clock, error) {
	var c Clock
	var err error

	if c.StartedAt, err = parseTimePtr(s.StartedAt); err != nil {
		return Clock{}, err
	}
	if c.PausedAt, err = parseTimePtr(s.PausedAt); err != nil {
		return Clock{}, err
	}
	c.PausedFor = time.Duration(s.PausedMs) * time.Millisecond

	if s.Response != nil {
		target, err := s.Response.target()
		if err != nil {
			return Clock{}, err
		}
		c.Response = &target
	}
	if s.Resolution != nil {
		if c.Resolution, err = s.Resolution.target(); err != nil {
			return Clock{}, err
		}
	}
	return c, nil
}

func newTargetSnapshot(t *Target) *TargetSnapshot {
	return &TargetSnapshot{
		BudgetMs: t.Budget.Milliseconds(),
		Due:      t.Due.UTC().Format(time.RFC3339Nano),
		MetAt:    formatTimePtr(t.MetAt, time.RFC3339Nano),
	}
}

func (s TargetSnapshot) target() (Target, error) {
	due, err := time.Parse(time.RFC3339Nano, s.Due)
	if err != nil {
		return Target{}, err
	}
	metAt, err := parseTimePtr(s.MetAt)
	if err != nil {
		return Target{}, err
	}
	return Target{
		Budget: time.Duration(s.BudgetMs) * time.Millisecond,
		Due:    due,
		MetAt:  metAt,
	}, nil
}

func formatTimePtr(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	value := t.UTC().Format(layout)
	return &value
}

func parseTimePtr(value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
