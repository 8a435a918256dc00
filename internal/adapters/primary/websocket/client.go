package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
)

const (
	writeWait        = 10 * time.Second
	maxMessageSize   = 1024
	sendBufferSize   = 256
	subscribeTimeout = 5 * time.Second
)

// Server-originated control messages.
const (
	EventPong               domain.EventType = "PONG"
	EventSubscribed         domain.EventType = "SUBSCRIBED"
	EventSubscribeDenied    domain.EventType = "SUBSCRIBE_DENIED"
	EventUnsubscribed       domain.EventType = "UNSUBSCRIBED"
	EventAlertsSubscribed   domain.EventType = "SLA_ALERTS_SUBSCRIBED"
	EventAlertsDenied       domain.EventType = "SLA_ALERTS_DENIED"
	EventAlertsUnsubscribed domain.EventType = "SLA_ALERTS_UNSUBSCRIBED"
)

// Client-originated message types.
const (
	msgSubscribeTicket   = "SUBSCRIBE_TO_TICKET"
	msgUnsubscribeTicket = "UNSUBSCRIBE_FROM_TICKET"
	msgSubscribeAlerts   = "SUBSCRIBE_TO_SLA_ALERTS"
	msgUnsubscribeAlerts = "UNSUBSCRIBE_FROM_SLA_ALERTS"
	msgPing              = "PING"
)

// Client is one authenticated websocket connection. It follows individual
// tickets and, optionally, the breach alerts of its whole tenant.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn

	// Send is closed by the hub exactly once, through CloseSend.
	Send chan domain.Event

	UserID   uuid.UUID
	TenantID uuid.UUID

	mu             sync.RWMutex
	tickets        map[int64]struct{}
	watchingAlerts bool

	closeOnce sync.Once
	logger    *slog.Logger
}

// NewClient creates a client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, userID, tenantID uuid.UUID, logger *slog.Logger) *Client {
	return &Client{
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan domain.Event, sendBufferSize),
		UserID:   userID,
		TenantID: tenantID,
		tickets:  make(map[int64]struct{}),
		logger: logger.With(
			"user_id", userID.String(),
			"tenant_id", tenantID.String(),
		),
	}
}

// CloseSend closes the Send channel once.
func (c *Client) CloseSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *Client) setTicket(ticketID int64, following bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if following {
		c.tickets[ticketID] = struct{}{}
	} else {
		delete(c.tickets, ticketID)
	}
}

// HasSubscription reports whether the client follows the ticket.
func (c *Client) HasSubscription(ticketID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tickets[ticketID]
	return ok
}

// GetSubscriptions returns the followed ticket IDs.
func (c *Client) GetSubscriptions() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	subs := make([]int64, 0, len(c.tickets))
	for ticketID := range c.tickets {
		subs = append(subs, ticketID)
	}
	return subs
}

func (c *Client) setWatchingAlerts(watching bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchingAlerts = watching
}

// WatchingAlerts reports whether the client receives tenant breach alerts.
func (c *Client) WatchingAlerts() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watchingAlerts
}

// ReadPump reads client messages until the connection fails, then detaches
// the client from the hub. It runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Detach(c)
		_ = c.Conn.Close()
	}()

	pongWait := c.Hub.pongWait
	c.Conn.SetReadLimit(maxMessageSize)
	extend := func() error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	}
	if err := extend(); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := extend(); err != nil {
			c.logger.Error("failed to extend read deadline", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		c.handleIncomingMessage(message)
	}
}

// WritePump delivers queued events and keepalive pings. It runs in its own
// goroutine and exits when the hub closes Send.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if !ok {
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}
			if err := c.Conn.WriteJSON(event); err != nil {
				c.logger.Error("failed to write event", "event_type", event.Type, "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// ClientMessage is a message sent by the browser.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload addresses one ticket.
type SubscribePayload struct {
	TicketID int64 `json:"ticketId"`
}

func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case msgSubscribeTicket:
		c.handleSubscribe(msg.Payload)
	case msgUnsubscribeTicket:
		c.handleUnsubscribe(msg.Payload)
	case msgSubscribeAlerts:
		c.handleAlerts(true)
	case msgUnsubscribeAlerts:
		c.handleAlerts(false)
	case msgPing:
		c.reply(EventPong, 0)
	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) handleSubscribe(payload json.RawMessage) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.TicketID <= 0 {
		c.logger.Warn("invalid subscribe request", "ticket_id", p.TicketID, "error", err)
		c.reply(EventSubscribeDenied, p.TicketID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	defer cancel()

	if err := c.Hub.subscribeClientToTicket(ctx, c, p.TicketID); err != nil {
		c.reply(EventSubscribeDenied, p.TicketID)
		return
	}
	c.reply(EventSubscribed, p.TicketID)
}

func (c *Client) handleUnsubscribe(payload json.RawMessage) {
	var p SubscribePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("failed to unmarshal unsubscribe payload", "error", err)
		return
	}

	c.Hub.unsubscribeClientFromTicket(c, p.TicketID)
	c.reply(EventUnsubscribed, p.TicketID)
}

func (c *Client) handleAlerts(watch bool) {
	if !watch {
		c.Hub.unwatchAlerts(c)
		c.reply(EventAlertsUnsubscribed, 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
	defer cancel()

	if err := c.Hub.watchAlerts(ctx, c); err != nil {
		c.reply(EventAlertsDenied, 0)
		return
	}
	c.reply(EventAlertsSubscribed, 0)
}

// reply queues a control message; it is skipped when the buffer is full.
func (c *Client) reply(eventType domain.EventType, ticketID int64) {
	defer func() {
		// Send may already be closed by the hub.
		_ = recover()
	}()
	select {
	case c.Send <- domain.Event{Type: eventType, TicketID: ticketID}:
	default:
	}
}
