package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of ticket event.
type EventType string

const (
	EventTicketCreated  EventType = "TICKET_CREATED"
	EventStatusUpdated  EventType = "STATUS_UPDATED"
	EventTicketAssigned EventType = "TICKET_ASSIGNED"
	EventFirstResponse  EventType = "FIRST_RESPONSE"
	EventCommentAdded   EventType = "COMMENT_ADDED"
	EventSLABreached    EventType = "SLA_BREACHED"
)

// Event is a timeline entry for a ticket. It is stored and also pushed
// over WebSocket to the ticket's room. TenantID only routes live delivery
// and is not persisted.
type Event struct {
	ID        int64           `json:"id"`
	TicketID  int64           `json:"ticketId"`
	TenantID  uuid.UUID       `json:"-"`
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	ActorID   uuid.UUID       `json:"actorId"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewEvent builds an unsaved timeline entry, encoding payload as its JSON
// body. A nil actor marks a system event.
func NewEvent(ticketID int64, eventType EventType, actorID uuid.UUID, payload any, at time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		TicketID:  ticketID,
		Type:      eventType,
		Payload:   raw,
		ActorID:   actorID,
		CreatedAt: at,
	}, nil
}
