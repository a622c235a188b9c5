package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/raaihank/loggov/internal/governance"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeDecision is a governance decision on a payload
	EventTypeDecision EventType = "decision"
	// EventTypeViolation is a payload missing required fields
	EventTypeViolation EventType = "schema_violation"
	// EventTypeReload is a governance config reload attempt
	EventTypeReload EventType = "config_reload"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DecisionEvent reports what governance did to one payload. The payload
// itself is never broadcast.
type DecisionEvent struct {
	Outcome   governance.Outcome   `json:"outcome"`
	Findings  []governance.Finding `json:"findings"`
	ElapsedUS int64                `json:"elapsed_us"`
}

// ViolationEvent reports missing required fields
type ViolationEvent struct {
	MissingFields []string `json:"missing_fields"`
}

// ReloadEvent reports a governance config reload attempt
type ReloadEvent struct {
	Success bool     `json:"success"`
	Version string   `json:"version"`
	Source  string   `json:"source"`
	Rules   []string `json:"rules"`
	Error   string   `json:"error,omitempty"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	ConfigVersion    string `json:"config_version"`
	ActiveRules      int    `json:"active_rules"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter narrows decision events
type EventFilter struct {
	// Rules keeps decisions with a finding for one of these rules
	Rules []string `json:"rules,omitempty"`
	// Outcomes keeps decisions with one of these outcomes
	Outcomes []governance.Outcome `json:"outcomes,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	IP           string
	UserAgent    string
}
