package ticket

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/minelotto/lotto-client/internal/model"
)

// ErrAlreadyPending is returned when a ticket already has an asynchronous
// entropy request outstanding.
var ErrAlreadyPending = errors.New("entropy request already pending for ticket")

// RefetchFunc receives the id of a ticket whose server state should be
// re-fetched. Invoked outside the store lock.
type RefetchFunc func(ticketID string)

// Store owns the ticket collection, the stats snapshot, and the per-ticket
// entropy bookkeeping for one session. All mutation is serialized.
type Store struct {
	logger *slog.Logger

	mu      sync.Mutex
	tickets map[string]*model.Ticket // keyed by TicketID
	stats   *model.SystemStats
	pending map[string]bool
	results map[string]*model.EntropyResult
	refetch RefetchFunc
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		logger:  logger,
		tickets: make(map[string]*model.Ticket),
		pending: make(map[string]bool),
		results: make(map[string]*model.EntropyResult),
	}
}

// OnRefetch registers the targeted-refetch hook.
func (s *Store) OnRefetch(fn RefetchFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refetch = fn
}

// -----------------------------------------------------------------------------
// Tickets
// -----------------------------------------------------------------------------

// ReplaceAll swaps in a freshly fetched ticket list. Entropy bookkeeping for
// tickets that still exist is preserved.
func (s *Store) ReplaceAll(tickets []model.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := make(map[string]*model.Ticket, len(tickets))
	for i := range tickets {
		t := tickets[i]
		fresh[t.TicketID] = &t
	}
	s.tickets = fresh

	for id := range s.pending {
		if _, ok := fresh[id]; !ok {
			delete(s.pending, id)
		}
	}
	for id := range s.results {
		if _, ok := fresh[id]; !ok {
			delete(s.results, id)
		}
	}
}

// Upsert stores a single authoritative ticket (from a detail fetch or a
// creation call).
func (s *Store) Upsert(t model.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.TicketID] = &t
}

// Get returns a copy of a ticket.
func (s *Store) Get(ticketID string) (model.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return model.Ticket{}, false
	}
	return *t, true
}

// List returns copies of all tickets, ordered by ticket id.
func (s *Store) List() []model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TicketID < out[j].TicketID
	})
	return out
}

// -----------------------------------------------------------------------------
// Stats
// -----------------------------------------------------------------------------

// SetStats replaces the aggregate snapshot wholesale.
func (s *Store) SetStats(stats model.SystemStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
}

// Stats returns a copy of the current snapshot, if one has been fetched.
func (s *Store) Stats() (model.SystemStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stats == nil {
		return model.SystemStats{}, false
	}
	return *s.stats, true
}

// -----------------------------------------------------------------------------
// Push-event merges
// -----------------------------------------------------------------------------

// ApplyAttemptEvent merges a ticket-activity event. The payload carries the
// ticket's authoritative counters after the attempt; the merge sets them,
// so applying the same event twice equals applying it once. An event for a
// ticket not in the cache is a no-op; the cache may be a filtered subset.
func (s *Store) ApplyAttemptEvent(ev model.AttemptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ev.TicketID]
	if !ok {
		s.logger.Debug("attempt event for unknown ticket", "ticket_id", ev.TicketID)
		return
	}

	// The stream is unordered and at-least-once; a stale redelivery must
	// not move counters backward.
	if ev.Ticket.TotalAttempts >= t.TotalAttempts {
		t.TotalAttempts = ev.Ticket.TotalAttempts
		t.LastAttemptAt = ev.Ticket.LastAttemptAt
	}
}

// ApplyBlockFound handles a block-found event. The payload carries no
// authoritative counters, so the store asks for a targeted refetch rather
// than incrementing locally.
func (s *Store) ApplyBlockFound(ev model.BlockFoundEvent) {
	s.mu.Lock()
	_, ok := s.tickets[ev.TicketID]
	fn := s.refetch
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("block-found event for unknown ticket", "ticket_id", ev.TicketID)
		return
	}

	s.logger.Info("block found", "ticket_id", ev.TicketID, "block_hash", ev.Attempt.BlockHash)
	if fn != nil {
		fn(ev.TicketID)
	}
}

// ApplyEntropyCompleted records a completion against the ticket owning the
// result's address, clears its pending flag, and requests a refetch for the
// authoritative counters (the completion payload has none).
func (s *Store) ApplyEntropyCompleted(res model.EntropyResult) {
	s.mu.Lock()
	var ticketID string
	for id, t := range s.tickets {
		if t.BtcAddress == res.Address {
			ticketID = id
			break
		}
	}
	if ticketID != "" {
		s.pending[ticketID] = false
		r := res
		s.results[ticketID] = &r
	}
	fn := s.refetch
	s.mu.Unlock()

	if ticketID == "" {
		s.logger.Debug("entropy completion for unknown address", "address", res.Address)
		return
	}
	if fn != nil {
		fn(ticketID)
	}
}

// -----------------------------------------------------------------------------
// Entropy bookkeeping
// -----------------------------------------------------------------------------

// BeginEntropy marks a ticket as having an asynchronous request in flight.
// Only one may be outstanding per ticket at a time.
func (s *Store) BeginEntropy(ticketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[ticketID] {
		return ErrAlreadyPending
	}
	s.pending[ticketID] = true
	delete(s.results, ticketID)
	return nil
}

// FinishEntropy clears the pending flag and records the result, if any.
func (s *Store) FinishEntropy(ticketID string, res *model.EntropyResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[ticketID] = false
	if res != nil {
		r := *res
		s.results[ticketID] = &r
	}
}

// EntropyPending reports whether a ticket has an asynchronous request in
// flight. Presentation layers use this to disable duplicate submission.
func (s *Store) EntropyPending(ticketID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[ticketID]
}

// LastEntropyResult returns the most recent completion for a ticket, if any.
func (s *Store) LastEntropyResult(ticketID string) (model.EntropyResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.results[ticketID]
	if !ok {
		return model.EntropyResult{}, false
	}
	return *r, true
}
