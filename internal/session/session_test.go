package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minelotto/lotto-client/internal/api"
	"github.com/minelotto/lotto-client/internal/config"
	"github.com/minelotto/lotto-client/internal/connection"
	"github.com/minelotto/lotto-client/internal/model"
)

// stubBackend is an in-memory stand-in for the lotto server's REST side.
type stubBackend struct {
	mu       sync.Mutex
	tickets  map[string]model.Ticket
	stats    model.SystemStats
	ackID    string
	lastHigh api.HighEntropyRequest
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		tickets: map[string]model.Ticket{
			"t1": {
				ID:            "db-1",
				TicketID:      "t1",
				BtcAddress:    "1ABC",
				Status:        model.TicketStatusActive,
				TotalAttempts: 10,
			},
			"t2": {
				ID:         "db-2",
				TicketID:   "t2",
				BtcAddress: "1XYZ",
				Status:     model.TicketStatusExpired,
			},
		},
		stats: model.SystemStats{TotalAttempts: 500, TotalBlocksMined: 2},
		ackID: "req-1",
	}
}

func (b *stubBackend) setAttempts(ticketID string, n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.tickets[ticketID]
	t.TotalAttempts = n
	b.tickets[ticketID] = t
}

func (b *stubBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/lotto/tickets", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var out []model.Ticket
		for _, t := range b.tickets {
			out = append(out, t)
		}
		json.NewEncoder(w).Encode(api.TicketsResponse{Tickets: out})
	})

	mux.HandleFunc("/api/lotto/tickets/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/lotto/tickets/")
		b.mu.Lock()
		defer b.mu.Unlock()
		t, ok := b.tickets[id]
		if !ok {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(api.SingleTicketResponse{Ticket: t})
	})

	mux.HandleFunc("/api/lotto/stats", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewEncoder(w).Encode(api.StatsResponse{Stats: b.stats})
	})

	mux.HandleFunc("/api/v1/mining/energy/high", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		json.NewDecoder(r.Body).Decode(&b.lastHigh)
		json.NewEncoder(w).Encode(api.HighEntropyAck{Message: "queued", RequestID: b.ackID})
	})

	return mux
}

// wsHub tracks the most recent push-channel connection so tests can inject
// server events and force reconnects.
type wsHub struct {
	mu   sync.Mutex
	conn *websocket.Conn
	gen  int
}

func (h *wsHub) serve(conn *websocket.Conn, r *http.Request) {
	h.mu.Lock()
	h.conn = conn
	h.gen++
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *wsHub) generation() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen
}

func (h *wsHub) dropConn() {
	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (h *wsHub) push(t *testing.T, event string, payload any) {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal push payload: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		conn := h.conn
		h.mu.Unlock()
		if conn != nil {
			if err := conn.WriteJSON(connection.Envelope{Event: event, Data: data}); err != nil {
				t.Fatalf("push %s: %v", event, err)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no push-channel connection to write to")
}

func startTestSession(t *testing.T, backend *stubBackend) (*Session, *wsHub) {
	t.Helper()

	rest := httptest.NewServer(backend.handler())
	t.Cleanup(rest.Close)

	hub := &wsHub{}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	ws := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		hub.serve(conn, r)
	}))
	t.Cleanup(ws.Close)

	cfg := &config.ClientConfig{
		API: config.APIConfig{
			RestURL: rest.URL,
			WSURL:   "ws" + strings.TrimPrefix(ws.URL, "http"),
			Token:   "test-token",
			Timeout: 5 * time.Second,
		},
		Channel: config.ChannelConfig{
			ReconnectBaseDelay: 10 * time.Millisecond,
			ReconnectMaxDelay:  100 * time.Millisecond,
			PingTimeout:        30 * time.Second,
			WriteTimeout:       time.Second,
			BufferSize:         100,
		},
		Entropy: config.EntropyConfig{
			LowStars:       5,
			HighStars:      12,
			RequestTimeout: 5 * time.Second,
		},
		Refresh: config.RefreshConfig{Interval: time.Hour},
	}

	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	return s, hub
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSession_StartLoadsState(t *testing.T) {
	s, _ := startTestSession(t, newStubBackend())

	tickets := s.Tickets()
	if len(tickets) != 2 {
		t.Fatalf("len(Tickets) = %d, want 2", len(tickets))
	}

	got, ok := s.Ticket("t1")
	if !ok || got.TotalAttempts != 10 {
		t.Errorf("Ticket(t1) = %+v, ok=%v", got, ok)
	}

	stats, ok := s.Stats()
	if !ok || stats.TotalAttempts != 500 {
		t.Errorf("Stats = %+v, ok=%v", stats, ok)
	}
	if !s.IsConnected() {
		t.Error("IsConnected = false after Start")
	}
}

func TestSession_AttemptEventUpdatesTicket(t *testing.T) {
	s, hub := startTestSession(t, newStubBackend())

	hub.push(t, connection.EventTicketActivity, model.AttemptEvent{
		TicketID: "t1",
		Attempt:  model.Attempt{ID: "a1", BlockHeight: 800001},
		Ticket: model.TicketCounters{
			TotalAttempts: 11,
			LastAttemptAt: "2026-08-30T10:00:00Z",
		},
	})

	waitFor(t, "attempt counters to apply", func() bool {
		got, _ := s.Ticket("t1")
		return got.TotalAttempts == 11
	})
}

func TestSession_BlockFoundTriggersRefetch(t *testing.T) {
	backend := newStubBackend()
	s, hub := startTestSession(t, backend)

	// The event carries no counters; the session must fetch the ticket and
	// pick up the server-side value.
	backend.setAttempts("t1", 42)
	hub.push(t, connection.EventBlockFound, model.BlockFoundEvent{
		TicketID:   "t1",
		Attempt:    model.Attempt{ID: "a2", IsBlock: true, BlockHash: "000000abc"},
		BtcAddress: "1ABC",
	})

	waitFor(t, "refetched counters", func() bool {
		got, _ := s.Ticket("t1")
		return got.TotalAttempts == 42
	})
}

func TestSession_HighEntropyEndToEnd(t *testing.T) {
	backend := newStubBackend()
	s, hub := startTestSession(t, backend)

	type res struct {
		result *model.EntropyResult
		err    error
	}
	done := make(chan res, 1)
	go func() {
		r, err := s.RequestHighEntropy(context.Background(), "t1", 0, "a1b2c3d4")
		done <- res{r, err}
	}()

	waitFor(t, "high entropy submission", func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.lastHigh.Seed != ""
	})
	backend.mu.Lock()
	if backend.lastHigh.Address != "1ABC" || backend.lastHigh.Stars != 12 {
		t.Errorf("submission = %+v", backend.lastHigh)
	}
	backend.mu.Unlock()

	if !s.EntropyPending("t1") {
		t.Error("EntropyPending(t1) = false while request in flight")
	}

	hub.push(t, connection.EventEntropyCompleted, model.EntropyResult{
		RequestID: "req-1",
		Address:   "1ABC",
		Hash:      "0000feed",
		Seed:      "a1b2c3d4",
		Stars:     12,
	})

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("RequestHighEntropy: %v", r.err)
		}
		if r.result.Hash != "0000feed" {
			t.Errorf("result = %+v", r.result)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("RequestHighEntropy never returned")
	}

	waitFor(t, "pending flag cleared", func() bool {
		return !s.EntropyPending("t1")
	})
	last, ok := s.LastEntropyResult("t1")
	if !ok || last.RequestID != "req-1" {
		t.Errorf("LastEntropyResult = %+v, ok=%v", last, ok)
	}
}

func TestSession_HighEntropyGuards(t *testing.T) {
	s, _ := startTestSession(t, newStubBackend())

	if _, err := s.RequestHighEntropy(context.Background(), "ghost", 0, ""); !errors.Is(err, ErrUnknownTicket) {
		t.Errorf("unknown ticket err = %v, want ErrUnknownTicket", err)
	}
	if _, err := s.RequestHighEntropy(context.Background(), "t2", 0, ""); !errors.Is(err, ErrTicketInactive) {
		t.Errorf("expired ticket err = %v, want ErrTicketInactive", err)
	}
}

func TestSession_UnsolicitedCompletionMergesState(t *testing.T) {
	backend := newStubBackend()
	s, hub := startTestSession(t, backend)

	// No local request is waiting; the completion must still land in the
	// store, located by payout address.
	hub.push(t, connection.EventEntropyCompleted, model.EntropyResult{
		RequestID: "req-ext",
		Address:   "1ABC",
		Hash:      "0000beef",
	})

	waitFor(t, "completion to merge", func() bool {
		last, ok := s.LastEntropyResult("t1")
		return ok && last.RequestID == "req-ext"
	})
}

func TestSession_CompletionAfterReconnect(t *testing.T) {
	backend := newStubBackend()
	s, hub := startTestSession(t, backend)

	done := make(chan error, 1)
	go func() {
		_, err := s.RequestHighEntropy(context.Background(), "t1", 0, "")
		done <- err
	}()

	waitFor(t, "high entropy submission", func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.lastHigh.Seed != ""
	})

	// Kill the channel mid-request. The manager must reconnect and rejoin
	// the request's room; the completion delivered afterwards must still
	// resolve the wait.
	gen := hub.generation()
	hub.dropConn()
	waitFor(t, "reconnect", func() bool {
		return hub.generation() > gen && s.IsConnected()
	})

	hub.push(t, connection.EventEntropyCompleted, model.EntropyResult{
		RequestID: "req-1",
		Address:   "1ABC",
		Hash:      "0000cafe",
	})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RequestHighEntropy after reconnect: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("pending request never resolved after reconnect")
	}
}

func TestSession_RefreshReplacesState(t *testing.T) {
	backend := newStubBackend()
	s, _ := startTestSession(t, backend)

	backend.setAttempts("t1", 99)
	backend.mu.Lock()
	backend.stats = model.SystemStats{TotalAttempts: 600, TotalBlocksMined: 3}
	backend.mu.Unlock()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got, _ := s.Ticket("t1")
	if got.TotalAttempts != 99 {
		t.Errorf("TotalAttempts = %d, want 99", got.TotalAttempts)
	}
	stats, _ := s.Stats()
	if stats.TotalBlocksMined != 3 {
		t.Errorf("Stats = %+v", stats)
	}
}
