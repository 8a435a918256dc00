package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-sla/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-sla/internal/core/errors"
	"github.com/lorrc/service-desk-sla/internal/core/ports"
)

// SubscriptionAuthorizer decides whether a tenant member may follow a ticket.
// A nil error grants the subscription.
type SubscriptionAuthorizer func(ctx context.Context, tenantID, userID uuid.UUID, ticketID int64) error

// AlertAuthorizer decides whether a tenant member may receive the tenant's
// breach alerts. A nil error grants it.
type AlertAuthorizer func(ctx context.Context, tenantID, userID uuid.UUID) error

// TicketAuthorizer grants subscriptions to tickets the user may read.
func TicketAuthorizer(ticketSvc ports.TicketService) SubscriptionAuthorizer {
	return func(ctx context.Context, tenantID, userID uuid.UUID, ticketID int64) error {
		_, err := ticketSvc.GetTicket(ctx, ports.GetTicketParams{
			TenantID: tenantID,
			TicketID: ticketID,
			ViewerID: userID,
		})
		return err
	}
}

// PermissionAlertAuthorizer grants the alert feed to holders of permission.
func PermissionAlertAuthorizer(authz ports.AuthorizationService, permission string) AlertAuthorizer {
	return func(ctx context.Context, _, userID uuid.UUID) error {
		ok, err := authz.Can(ctx, userID, permission)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.ErrForbidden
		}
		return nil
	}
}

// HubConfig holds connection keepalive settings.
type HubConfig struct {
	PingInterval time.Duration
	PongWait     time.Duration
}

type clientSet map[*Client]struct{}

// Hub tracks live connections and fans ticket events out to them. Events go
// to the ticket's room; SLA_BREACHED events also go to every client of the
// ticket's tenant that watches alerts.
type Hub struct {
	// clients groups connections by user; a user may have several tabs open.
	clients map[uuid.UUID]clientSet
	rooms   map[int64]clientSet
	alerts  map[uuid.UUID]clientSet

	broadcast  chan domain.Event
	Register   chan *Client
	Unregister chan *Client

	// done is closed once Run has returned.
	done chan struct{}

	// mu guards clients, rooms and alerts.
	mu sync.RWMutex

	authorize      SubscriptionAuthorizer
	authorizeAlert AlertAuthorizer
	pingInterval   time.Duration
	pongWait       time.Duration

	logger *slog.Logger
}

var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a hub. A ping interval that would not fire before the pong
// deadline is replaced with nine tenths of it.
func NewHub(cfg HubConfig, authorize SubscriptionAuthorizer, logger *slog.Logger) *Hub {
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = (cfg.PongWait * 9) / 10
	}
	return &Hub{
		clients:      make(map[uuid.UUID]clientSet),
		rooms:        make(map[int64]clientSet),
		alerts:       make(map[uuid.UUID]clientSet),
		broadcast:    make(chan domain.Event, sendBufferSize),
		Register:     make(chan *Client),
		Unregister:   make(chan *Client),
		done:         make(chan struct{}),
		authorize:    authorize,
		pingInterval: cfg.PingInterval,
		pongWait:     cfg.PongWait,
		logger:       logger.With("component", "websocket_hub"),
	}
}

// WithAlertAuthorizer guards the tenant alert feed. Without one every
// tenant member may watch it.
func (h *Hub) WithAlertAuthorizer(authorize AlertAuthorizer) *Hub {
	h.authorizeAlert = authorize
	return h
}

// Broadcast queues an event for delivery. A full queue drops the event: the
// timeline in the database stays authoritative.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"event_type", event.Type,
			"ticket_id", event.TicketID,
		)
	}
	return nil
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client. It must run in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Attach registers a client, returning false once the hub has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Detach unregisters a client; it never blocks after the hub has stopped.
func (h *Hub) Detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

func addTo[K comparable](sets map[K]clientSet, key K, client *Client) {
	if sets[key] == nil {
		sets[key] = make(clientSet)
	}
	sets[key][client] = struct{}{}
}

func removeFrom[K comparable](sets map[K]clientSet, key K, client *Client) {
	if set, ok := sets[key]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(sets, key)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	addTo(h.clients, client.UserID, client)
	h.logger.Info("client registered",
		"user_id", client.UserID,
		"tenant_id", client.TenantID,
		"total_connections", len(h.clients[client.UserID]),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(client)
	h.logger.Info("client unregistered", "user_id", client.UserID)
}

// removeLocked drops the client from every index and closes its Send
// channel. The caller holds mu.
func (h *Hub) removeLocked(client *Client) {
	removeFrom(h.clients, client.UserID, client)
	for _, ticketID := range client.GetSubscriptions() {
		removeFrom(h.rooms, ticketID, client)
	}
	removeFrom(h.alerts, client.TenantID, client)
	client.CloseSend()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for client := range userClients {
			h.removeLocked(client)
		}
	}
	h.logger.Info("websocket hub stopped")
}

// recipients collects the clients an event is delivered to, each once.
func (h *Hub) recipients(event domain.Event) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(clientSet)
	for client := range h.rooms[event.TicketID] {
		seen[client] = struct{}{}
	}
	if event.Type == domain.EventSLABreached && event.TenantID != uuid.Nil {
		for client := range h.alerts[event.TenantID] {
			seen[client] = struct{}{}
		}
	}

	clients := make([]*Client, 0, len(seen))
	for client := range seen {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) broadcastEvent(event domain.Event) {
	clients := h.recipients(event)
	if len(clients) == 0 {
		return
	}

	h.logger.Debug("broadcasting event",
		"event_type", event.Type,
		"ticket_id", event.TicketID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		select {
		case client.Send <- event:
		default:
			// Run is the caller, so unregister directly rather than
			// through the channel.
			h.logger.Warn("client send buffer full, unregistering", "user_id", client.UserID)
			h.unregisterClient(client)
		}
	}
}

// subscribeClientToTicket adds a client to a ticket's room once the
// authorizer has granted it.
func (h *Hub) subscribeClientToTicket(ctx context.Context, client *Client, ticketID int64) error {
	if h.authorize != nil {
		if err := h.authorize(ctx, client.TenantID, client.UserID, ticketID); err != nil {
			h.logger.Warn("ticket subscription denied",
				"user_id", client.UserID,
				"tenant_id", client.TenantID,
				"ticket_id", ticketID,
				"error", err,
			)
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	addTo(h.rooms, ticketID, client)
	client.setTicket(ticketID, true)
	h.logger.Debug("client subscribed to ticket", "user_id", client.UserID, "ticket_id", ticketID)
	return nil
}

func (h *Hub) unsubscribeClientFromTicket(client *Client, ticketID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeFrom(h.rooms, ticketID, client)
	client.setTicket(ticketID, false)
	h.logger.Debug("client unsubscribed from ticket", "user_id", client.UserID, "ticket_id", ticketID)
}

// watchAlerts adds a client to its tenant's alert feed.
func (h *Hub) watchAlerts(ctx context.Context, client *Client) error {
	if h.authorizeAlert != nil {
		if err := h.authorizeAlert(ctx, client.TenantID, client.UserID); err != nil {
			h.logger.Warn("sla alert subscription denied",
				"user_id", client.UserID,
				"tenant_id", client.TenantID,
				"error", err,
			)
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	addTo(h.alerts, client.TenantID, client)
	client.setWatchingAlerts(true)
	return nil
}

func (h *Hub) unwatchAlerts(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeFrom(h.alerts, client.TenantID, client)
	client.setWatchingAlerts(false)
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, userClients := range h.clients {
		count += len(userClients)
	}
	return count
}

// GetClientsInRoom returns the number of clients subscribed to a ticket
func (h *Hub) GetClientsInRoom(ticketID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ticketID])
}

// GetAlertWatchers returns how many clients of a tenant watch breach alerts.
func (h *Hub) GetAlertWatchers(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.alerts[tenantID])
}
