package correlate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/minelotto/lotto-client/internal/connection"
	"github.com/minelotto/lotto-client/internal/router"
)

// Errors
var (
	ErrTimeout          = errors.New("no completion within deadline")
	ErrCancelled        = errors.New("wait cancelled")
	ErrDuplicateRequest = errors.New("request id already pending")
)

// DefaultTimeout bounds a wait when the caller passes no explicit timeout.
const DefaultTimeout = 60 * time.Second

// RoomJoiner is the slice of the channel manager the correlator needs to
// scope server-side delivery.
type RoomJoiner interface {
	JoinRoom(room string) error
	LeaveRoom(room string)
}

// Correlator owns the table of in-flight requests. One instance serves all
// concurrent awaits of a session.
type Correlator struct {
	router *router.Router
	rooms  RoomJoiner
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*Pending
}

// New creates a correlator on top of the given router and room joiner.
func New(r *router.Router, rooms RoomJoiner, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Correlator{
		router:  r,
		rooms:   rooms,
		logger:  logger,
		pending: make(map[string]*Pending),
	}
}

// outcome is the single resolution of a pending entry.
type outcome struct {
	payload json.RawMessage
	err     error
}

// Pending is one in-flight request. It resolves exactly once.
type Pending struct {
	c         *Correlator
	requestID string
	room      string
	sub       router.Subscription
	timer     *time.Timer

	mu       sync.Mutex
	resolved bool
	result   chan outcome // buffered, receives exactly one outcome
}

// Await registers a pending entry for a server-assigned request id and
// starts listening for its completion event. The subscription, room join,
// and deadline timer are all armed before Await returns. timeout <= 0 means
// DefaultTimeout.
func (c *Correlator) Await(requestID, event string, timeout time.Duration) (*Pending, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	p := &Pending{
		c:         c,
		requestID: requestID,
		room:      connection.EntropyRoom(requestID),
		result:    make(chan outcome, 1),
	}

	c.mu.Lock()
	if _, exists := c.pending[requestID]; exists {
		c.mu.Unlock()
		return nil, ErrDuplicateRequest
	}
	c.pending[requestID] = p
	c.mu.Unlock()

	// Arm under the entry lock. The handler is live the moment Subscribe
	// returns, and resolve takes the same lock, so a completion dispatched
	// mid-arming blocks until the subscription handle and timer it must
	// release are in place.
	p.mu.Lock()

	// The predicate stays mandatory even with room scoping: a server that
	// broadcasts instead of scoping must not cross-resolve entries.
	p.sub = c.router.Subscribe(event, func(data json.RawMessage) bool {
		var probe struct {
			RequestID string `json:"requestId"`
		}
		return json.Unmarshal(data, &probe) == nil && probe.RequestID == requestID
	}, func(data json.RawMessage) {
		p.resolve(outcome{payload: data})
	})

	// Room membership is recorded by the manager even when the send fails
	// while disconnected; the reconnect replay covers that window.
	if err := c.rooms.JoinRoom(p.room); err != nil {
		c.logger.Warn("failed to join delivery room",
			"room", p.room,
			"error", err,
		)
	}

	p.timer = time.AfterFunc(timeout, func() {
		p.resolve(outcome{err: ErrTimeout})
	})

	p.mu.Unlock()

	return p, nil
}

// Len returns the number of unresolved pending entries.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) remove(requestID string) {
	c.mu.Lock()
	delete(c.pending, requestID)
	c.mu.Unlock()
}

// resolve settles the entry with the first outcome and performs full
// cleanup. Later calls, such as a redelivered event or a racing timer, are
// no-ops.
func (p *Pending) resolve(o outcome) {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.resolved = true
	timer := p.timer
	sub := p.sub
	p.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	p.c.remove(p.requestID)
	p.c.router.Unsubscribe(sub)
	p.c.rooms.LeaveRoom(p.room)

	p.result <- o
}

// Wait blocks until the entry resolves. Context cancellation abandons the
// wait with ErrCancelled and performs the same cleanup as a timeout; the
// server-side computation is not cancelled. If a completion wins the race
// against cancellation, the completion is returned.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case o := <-p.result:
		return o.payload, o.err
	case <-ctx.Done():
		p.resolve(outcome{err: ErrCancelled})
		o := <-p.result
		return o.payload, o.err
	}
}

// Cancel abandons the wait explicitly. Safe to call at any time, including
// after resolution.
func (p *Pending) Cancel() {
	p.resolve(outcome{err: ErrCancelled})
}
