package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/raaihank/loggov/internal/governance"
)

type wireEvent struct {
	ID   string                 `json:"id"`
	Type EventType              `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func startHub(t *testing.T, cfg HubConfig) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(cfg, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func redactedResult(t *testing.T) governance.GovernedResult {
	t.Helper()
	res, err := governance.DefaultConfig().Apply(governance.String("mail jane@example.com"))
	require.NoError(t, err)
	return res
}

func TestHub_BroadcastsDecisions(t *testing.T) {
	hub, srv := startHub(t, HubConfig{BroadcastDecisions: true, BroadcastReloads: true})
	conn := dial(t, hub, srv)

	hub.ObserveResult(redactedResult(t), 3*time.Microsecond)

	ev := readEvent(t, conn)
	assert.Equal(t, EventTypeDecision, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "redacted", ev.Data["outcome"])
	_, hasPayload := ev.Data["payload"]
	assert.False(t, hasPayload, "payload must not be broadcast")

	// clean results are skipped, so the reload is the next event
	clean, err := governance.DefaultConfig().Apply(governance.String("hello"))
	require.NoError(t, err)
	hub.ObserveResult(clean, time.Microsecond)
	hub.ReportReload(governance.DefaultConfig(), nil)

	ev = readEvent(t, conn)
	assert.Equal(t, EventTypeReload, ev.Type)
	assert.Equal(t, true, ev.Data["success"])
	assert.Equal(t, governance.SourceBuiltin, ev.Data["source"])
}

func TestHub_Subscription(t *testing.T) {
	hub, srv := startHub(t, HubConfig{BroadcastDecisions: true, BroadcastReloads: true})
	conn := dial(t, hub, srv)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type: "subscribe",
		Data: map[string]interface{}{"events": []string{string(EventTypeReload)}},
	}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "ping"}))
	assert.Equal(t, EventTypePong, readEvent(t, conn).Type)

	hub.ObserveResult(redactedResult(t), time.Microsecond)
	hub.ReportReload(governance.DefaultConfig(), nil)

	assert.Equal(t, EventTypeReload, readEvent(t, conn).Type)
}

func TestHub_DisabledEventsAreDropped(t *testing.T) {
	hub, srv := startHub(t, HubConfig{BroadcastReloads: true})
	conn := dial(t, hub, srv)

	hub.ObserveResult(redactedResult(t), time.Microsecond)
	hub.ObserveViolation(governance.ValidationResult{MissingFields: []string{"Email"}})
	hub.ReportReload(nil, assert.AnError)

	ev := readEvent(t, conn)
	assert.Equal(t, EventTypeReload, ev.Type)
	assert.Equal(t, false, ev.Data["success"])
	assert.Equal(t, assert.AnError.Error(), ev.Data["error"])
}

func TestHub_RequiresAuth(t *testing.T) {
	hub, srv := startHub(t, HubConfig{Username: "admin", Password: "secret"})

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.SetBasicAuth("admin", "secret")
	header.Set("Authorization", req.Header.Get("Authorization"))

	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_MaxConnections(t *testing.T) {
	hub, srv := startHub(t, HubConfig{MaxConnections: 1})
	dial(t, hub, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestApplyEventFilter(t *testing.T) {
	decision := Event{Type: EventTypeDecision, Data: DecisionEvent{
		Outcome:  governance.OutcomeRedacted,
		Findings: []governance.Finding{{Rule: governance.RuleEmail, Count: 1}},
	}}

	tests := []struct {
		name   string
		filter EventFilter
		want   bool
	}{
		{name: "empty", filter: EventFilter{}, want: true},
		{name: "rule match", filter: EventFilter{Rules: []string{"email"}}, want: true},
		{name: "rule miss", filter: EventFilter{Rules: []string{"ssn"}}, want: false},
		{name: "outcome match", filter: EventFilter{Outcomes: []governance.Outcome{governance.OutcomeRedacted}}, want: true},
		{name: "outcome miss", filter: EventFilter{Outcomes: []governance.Outcome{governance.OutcomeBlocked}}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, applyEventFilter(&tc.filter, decision))
		})
	}

	reload := Event{Type: EventTypeReload, Data: ReloadEvent{}}
	assert.True(t, applyEventFilter(&EventFilter{Rules: []string{"ssn"}}, reload))
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(r))

	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", getClientIP(r))
}
