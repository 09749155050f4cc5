package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/minelotto/lotto-client/internal/connection"
)

// Predicate filters event payloads. A nil predicate matches everything.
type Predicate func(data json.RawMessage) bool

// Handler consumes a matching event payload. Handlers run on the dispatch
// goroutine and must not block indefinitely.
type Handler func(data json.RawMessage)

// Subscription is an opaque handle for one registration. Unsubscribing a
// handle affects exactly that registration.
type Subscription struct {
	id    uuid.UUID
	event string
}

// Event returns the event name this subscription watches.
func (s Subscription) Event() string {
	return s.event
}

type subEntry struct {
	pred Predicate
	fn   Handler
}

// Stats contains runtime statistics.
type Stats struct {
	Received   int64
	Dispatched int64
	Unmatched  int64
}

// Router routes inbound envelopes to matching subscribers.
type Router struct {
	logger *slog.Logger
	input  <-chan connection.Envelope

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	subs map[string]map[uuid.UUID]*subEntry

	received   int64
	dispatched int64
	unmatched  int64
}

// NewRouter creates a router reading from the given envelope source.
func NewRouter(input <-chan connection.Envelope, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		logger: logger,
		input:  input,
		subs:   make(map[string]map[uuid.UUID]*subEntry),
	}
}

// Start begins the dispatch loop.
func (r *Router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.dispatchLoop()

	r.logger.Info("event router started")
	return nil
}

// Stop gracefully shuts down the router.
func (r *Router) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("event router stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("event router stop timed out")
		return ctx.Err()
	}
}

// Subscribe registers a handler for an event name. The returned handle is
// the only way to remove this registration.
func (r *Router) Subscribe(event string, pred Predicate, fn Handler) Subscription {
	sub := Subscription{id: uuid.New(), event: event}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.subs[event]
	if !ok {
		entries = make(map[uuid.UUID]*subEntry)
		r.subs[event] = entries
	}
	entries[sub.id] = &subEntry{pred: pred, fn: fn}

	return sub
}

// Unsubscribe removes exactly one registration. Removing an already-removed
// handle is a no-op.
func (r *Router) Unsubscribe(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.subs[sub.event]
	if !ok {
		return
	}
	delete(entries, sub.id)
	if len(entries) == 0 {
		delete(r.subs, sub.event)
	}
}

// Count returns the number of live subscriptions for an event name.
func (r *Router) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[event])
}

// Stats returns current statistics.
func (r *Router) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Received:   r.received,
		Dispatched: r.dispatched,
		Unmatched:  r.unmatched,
	}
}

// dispatchLoop is the single dispatch goroutine. Envelopes are processed in
// arrival order; no reordering or coalescing.
func (r *Router) dispatchLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case env, ok := <-r.input:
			if !ok {
				r.logger.Info("event source closed")
				return
			}
			r.dispatch(env)
		}
	}
}

// dispatch delivers one envelope to every matching subscriber.
func (r *Router) dispatch(env connection.Envelope) {
	// Snapshot matching handlers under the lock, invoke outside it so a
	// handler can unsubscribe (itself or others) without deadlock.
	r.mu.Lock()
	r.received++
	var handlers []Handler
	for _, entry := range r.subs[env.Event] {
		if entry.pred == nil || entry.pred(env.Data) {
			handlers = append(handlers, entry.fn)
		}
	}
	if len(handlers) == 0 {
		r.unmatched++
	} else {
		r.dispatched++
	}
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(env.Data)
	}
}
