package websocket

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/loggov/internal/config"
	"github.com/raaihank/loggov/internal/governance"
)

// HubConfig contains configuration for the WebSocket hub
type HubConfig struct {
	BroadcastDecisions   bool
	BroadcastViolations  bool
	BroadcastReloads     bool
	BroadcastSystem      bool
	BroadcastConnections bool

	MaxConnections  int
	ReadBufferSize  int
	WriteBufferSize int
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	AllowedOrigins  []string

	// Basic auth is required when Username is set
	Username string
	Password string
}

// HubConfigFrom maps the application websocket section onto a HubConfig.
func HubConfigFrom(cfg config.WebSocketConfig) HubConfig {
	return HubConfig{
		BroadcastDecisions:   cfg.Events.BroadcastDecisions,
		BroadcastViolations:  cfg.Events.BroadcastViolations,
		BroadcastReloads:     cfg.Events.BroadcastReloads,
		BroadcastSystem:      true,
		BroadcastConnections: cfg.Events.BroadcastConnections,
		MaxConnections:       cfg.MaxConnections,
		ReadBufferSize:       cfg.ReadBufferSize,
		WriteBufferSize:      cfg.WriteBufferSize,
		WriteTimeout:         cfg.WriteTimeout,
		PongTimeout:          cfg.PongTimeout,
		PingInterval:         cfg.PingInterval,
		MaxMessageSize:       cfg.MaxMessageSize,
		AllowedOrigins:       cfg.AllowedOrigins,
		Username:             cfg.Username,
		Password:             cfg.Password,
	}
}

func (c *HubConfig) setDefaults() {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = 60 * time.Second
	}
	// Must be less than PongTimeout
	if c.PingInterval <= 0 || c.PingInterval >= c.PongTimeout {
		c.PingInterval = (c.PongTimeout * 9) / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512
	}
}

type outbound struct {
	event   Event
	exclude *Client
}

// Hub maintains the set of active clients and broadcasts governance events
// to them. It implements governance.Observer.
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound events
	broadcast chan outbound

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	config   HubConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// Guards clients and stats
	mu    sync.RWMutex
	stats HubStats

	// Guards client subscriptions
	subMu sync.RWMutex
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64
	ActiveConnections  int64
	TotalMessages      int64
	TotalBroadcasts    int64
	DroppedEvents      int64
	LastConnectionTime time.Time
	LastDisconnectTime time.Time
	LastBroadcastTime  time.Time
}

// NewHub creates a new WebSocket hub
func NewHub(cfg HubConfig, logger *zap.Logger) *Hub {
	cfg.setDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		config:     cfg,
		logger:     logger.With(zap.String("component", "websocket")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Run handles client registration and broadcasting until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Starting WebSocket hub")

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case out := <-h.broadcast:
			h.broadcastEvent(out)
		}
	}
}

// registerClient registers a new client
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections++
	h.stats.LastConnectionTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	h.enqueue(newEvent(EventTypeConnection, ConnectionEvent{
		Action:    "connected",
		ClientID:  client.ID,
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
		Message:   fmt.Sprintf("Client %s connected", client.ID),
	}), client)
}

// unregisterClient unregisters a client
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	h.dropLocked(client)
	h.stats.LastDisconnectTime = time.Now()
	active := h.stats.ActiveConnections
	h.mu.Unlock()

	h.logger.Info("Client disconnected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP),
		zap.Int64("active_connections", active),
	)

	h.enqueue(newEvent(EventTypeConnection, ConnectionEvent{
		Action:    "disconnected",
		ClientID:  client.ID,
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
		Message:   fmt.Sprintf("Client %s disconnected", client.ID),
	}), nil)
}

// dropLocked removes client; h.mu must be held.
func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.stats.ActiveConnections--
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.dropLocked(client)
	}
}

// broadcastEvent delivers an event to every subscribed client
func (h *Hub) broadcastEvent(out outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	h.stats.LastBroadcastTime = time.Now()

	for client := range h.clients {
		if client == out.exclude || !h.shouldSendToClient(client, out.event) {
			continue
		}
		select {
		case client.Send <- out.event:
			h.stats.TotalMessages++
		default:
			// Client's send channel is full, close it
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("client_id", client.ID),
			)
			h.dropLocked(client)
		}
	}
}

// shouldSendToClient determines if an event should be sent to a specific client based on their subscription
func (h *Hub) shouldSendToClient(client *Client, event Event) bool {
	h.subMu.RLock()
	sub := client.Subscription
	h.subMu.RUnlock()

	if sub == nil {
		// No subscription filter, send all events
		return true
	}

	subscribed := false
	for _, eventType := range sub.Events {
		if eventType == event.Type {
			subscribed = true
			break
		}
	}
	if !subscribed {
		return false
	}

	if sub.Filter != nil {
		return applyEventFilter(sub.Filter, event)
	}
	return true
}

// applyEventFilter narrows decision events; other events pass.
func applyEventFilter(filter *EventFilter, event Event) bool {
	decision, ok := event.Data.(DecisionEvent)
	if !ok {
		return true
	}

	if len(filter.Outcomes) > 0 {
		match := false
		for _, o := range filter.Outcomes {
			if o == decision.Outcome {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if len(filter.Rules) > 0 {
		for _, f := range decision.Findings {
			for _, r := range filter.Rules {
				if f.Rule == r {
					return true
				}
			}
		}
		return false
	}

	return true
}

// BroadcastEvent sends an event to all connected clients (only if enabled in config)
func (h *Hub) BroadcastEvent(event Event) {
	if !h.shouldBroadcastEvent(event.Type) {
		return
	}
	h.enqueue(event, nil)
}

func (h *Hub) enqueue(event Event, exclude *Client) {
	if event.Type == EventTypeConnection && !h.config.BroadcastConnections {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- outbound{event: event, exclude: exclude}:
	default:
		h.mu.Lock()
		h.stats.DroppedEvents++
		h.mu.Unlock()
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// shouldBroadcastEvent checks if an event type should be broadcast based on configuration
func (h *Hub) shouldBroadcastEvent(eventType EventType) bool {
	switch eventType {
	case EventTypeDecision:
		return h.config.BroadcastDecisions
	case EventTypeViolation:
		return h.config.BroadcastViolations
	case EventTypeReload:
		return h.config.BroadcastReloads
	case EventTypeSystemStatus:
		return h.config.BroadcastSystem
	case EventTypeConnection:
		return h.config.BroadcastConnections
	default:
		return false
	}
}

// ObserveResult implements governance.Observer. Clean payloads are not
// broadcast.
func (h *Hub) ObserveResult(result governance.GovernedResult, elapsed time.Duration) {
	if len(result.Findings) == 0 {
		return
	}
	h.BroadcastEvent(newEvent(EventTypeDecision, DecisionEvent{
		Outcome:   result.Outcome,
		Findings:  result.Findings,
		ElapsedUS: elapsed.Microseconds(),
	}))
}

// ObserveViolation implements governance.Observer.
func (h *Hub) ObserveViolation(result governance.ValidationResult) {
	h.BroadcastEvent(newEvent(EventTypeViolation, ViolationEvent{
		MissingFields: result.MissingFields,
	}))
}

// ReportReload broadcasts the outcome of a governance reload.
func (h *Hub) ReportReload(active *governance.Config, err error) {
	ev := ReloadEvent{Success: err == nil}
	if active != nil {
		ev.Version = active.Version()
		ev.Source = active.Source()
		ev.Rules = active.RuleNames()
	}
	if err != nil {
		ev.Error = err.Error()
	}
	h.BroadcastEvent(newEvent(EventTypeReload, ev))
}

// HandleWebSocket handles WebSocket connections
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.config.Username != "" && !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="loggov"`)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if h.config.MaxConnections > 0 && h.ClientCount() >= h.config.MaxConnections {
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.NewString(),
		Conn:        conn,
		Send:        make(chan Event, 256),
		ConnectedAt: time.Now(),
		IP:          getClientIP(r),
		UserAgent:   r.UserAgent(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.handleClientWrite(client)
	go h.handleClientRead(client)
}

func (h *Hub) authorized(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.config.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.config.Password)) == 1
	return userOK && passOK
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.config.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// handleClientWrite handles writing messages to the client
func (h *Hub) handleClientWrite(client *Client) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				_ = client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(event); err != nil {
				h.logger.Error("Failed to write WebSocket message",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = client.Conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientRead handles reading messages from the client
func (h *Hub) handleClientRead(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
		client.Conn.Close()
	}()

	conn := client.Conn
	conn.SetReadLimit(h.config.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	})

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error",
					zap.String("client_id", client.ID),
					zap.Error(err),
				)
			}
			return
		}

		h.handleClientMessage(client, msg)
	}
}

// handleClientMessage handles messages received from clients
func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		data, err := json.Marshal(msg.Data)
		if err != nil {
			return
		}
		var subscription SubscriptionRequest
		if err := json.Unmarshal(data, &subscription); err != nil {
			h.logger.Warn("Invalid subscription request",
				zap.String("client_id", client.ID),
				zap.Error(err),
			)
			return
		}
		h.subMu.Lock()
		client.Subscription = &subscription
		h.subMu.Unlock()
		h.logger.Info("Client subscription updated",
			zap.String("client_id", client.ID),
			zap.Any("subscription", subscription),
		)

	case "unsubscribe":
		h.subMu.Lock()
		client.Subscription = nil
		h.subMu.Unlock()

	case "ping":
		h.mu.RLock()
		defer h.mu.RUnlock()
		// Send is closed once the client is dropped
		if !h.clients[client] {
			return
		}
		select {
		case client.Send <- newEvent(EventTypePong, map[string]string{"message": "pong"}):
		default:
		}
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.ActiveConnections = int64(len(h.clients))
	return stats
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func newEvent(typ EventType, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
