// Package session wires the REST client, the push channel, the event router,
// the request correlator, and the ticket store into one running client
// session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minelotto/lotto-client/internal/api"
	"github.com/minelotto/lotto-client/internal/auth"
	"github.com/minelotto/lotto-client/internal/config"
	"github.com/minelotto/lotto-client/internal/connection"
	"github.com/minelotto/lotto-client/internal/correlate"
	"github.com/minelotto/lotto-client/internal/entropy"
	"github.com/minelotto/lotto-client/internal/model"
	"github.com/minelotto/lotto-client/internal/router"
	"github.com/minelotto/lotto-client/internal/ticket"
)

// Errors
var (
	ErrUnknownTicket  = errors.New("ticket not in session state")
	ErrTicketInactive = errors.New("ticket is not active")
)

const refetchBuffer = 64

// Session is a running lotto client: one REST client, one push channel, and
// the state they keep consistent.
type Session struct {
	cfg    *config.ClientConfig
	logger *slog.Logger

	api        *api.Client
	manager    *connection.Manager
	router     *router.Router
	correlator *correlate.Correlator
	entropy    *entropy.Service
	store      *ticket.Store

	refetchCh chan string
	refreshCh chan struct{}
	started   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a session from configuration. The returned session is not
// running until Start is called.
func New(cfg *config.ClientConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}

	creds, err := auth.Load(cfg.API.Token, cfg.API.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	apiClient := api.NewClient(cfg.API.RestURL, creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	manager := connection.NewManager(connection.ManagerConfig{
		WSURL:             cfg.API.WSURL,
		ReconnectBaseWait: cfg.Channel.ReconnectBaseDelay,
		ReconnectMaxWait:  cfg.Channel.ReconnectMaxDelay,
		PingTimeout:       cfg.Channel.PingTimeout,
		WriteTimeout:      cfg.Channel.WriteTimeout,
		EventBufferSize:   cfg.Channel.BufferSize,
	}, creds, logger)

	rt := router.NewRouter(manager.Events(), logger)
	corr := correlate.New(rt, manager, logger)
	store := ticket.NewStore(logger)

	svc := entropy.NewService(entropy.Config{
		RequestTimeout: cfg.Entropy.RequestTimeout,
		LowStars:       cfg.Entropy.LowStars,
		HighStars:      cfg.Entropy.HighStars,
	}, apiClient, corr, store, logger)

	s := &Session{
		cfg:        cfg,
		logger:     logger,
		api:        apiClient,
		manager:    manager,
		router:     rt,
		correlator: corr,
		entropy:    svc,
		store:      store,
		refetchCh:  make(chan string, refetchBuffer),
		refreshCh:  make(chan struct{}, 1),
	}
	store.OnRefetch(s.enqueueRefetch)

	return s, nil
}

// Start connects the push channel, registers the push-event merges, loads the
// initial state, and starts the background workers.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	// A reconnect may have missed events; refetch everything.
	s.manager.OnStateChange(func(connected bool) {
		if connected && s.started.Load() {
			s.logger.Info("push channel restored, scheduling full refresh")
			s.requestRefresh()
		}
	})

	if err := s.manager.Start(s.ctx); err != nil {
		return fmt.Errorf("start push channel: %w", err)
	}
	if err := s.router.Start(s.ctx); err != nil {
		return fmt.Errorf("start router: %w", err)
	}

	s.router.Subscribe(connection.EventTicketActivity, nil, s.handleAttempt)
	s.router.Subscribe(connection.EventBlockFound, nil, s.handleBlockFound)
	s.router.Subscribe(connection.EventEntropyCompleted, nil, s.handleEntropyCompleted)

	if err := s.loadState(s.ctx); err != nil {
		return fmt.Errorf("initial state load: %w", err)
	}
	s.started.Store(true)

	s.wg.Add(2)
	go s.refreshLoop()
	go s.refetchLoop()

	s.logger.Info("session started",
		"tickets", len(s.store.List()),
		"refresh_interval", s.cfg.Refresh.Interval,
	)
	return nil
}

// Stop shuts down workers and the push channel.
func (s *Session) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("session workers did not stop in time")
		return ctx.Err()
	}

	if err := s.router.Stop(ctx); err != nil {
		return err
	}
	if err := s.manager.Stop(ctx); err != nil {
		return err
	}

	s.logger.Info("session stopped")
	return nil
}

// IsConnected reports the push channel state.
func (s *Session) IsConnected() bool {
	return s.manager.IsConnected()
}

// -----------------------------------------------------------------------------
// State access
// -----------------------------------------------------------------------------

// Tickets returns the cached ticket list.
func (s *Session) Tickets() []model.Ticket {
	return s.store.List()
}

// Ticket returns one cached ticket.
func (s *Session) Ticket(ticketID string) (model.Ticket, bool) {
	return s.store.Get(ticketID)
}

// Stats returns the cached aggregate snapshot.
func (s *Session) Stats() (model.SystemStats, bool) {
	return s.store.Stats()
}

// EntropyPending reports whether a ticket has an asynchronous entropy request
// in flight.
func (s *Session) EntropyPending(ticketID string) bool {
	return s.store.EntropyPending(ticketID)
}

// LastEntropyResult returns the most recent completion for a ticket.
func (s *Session) LastEntropyResult(ticketID string) (model.EntropyResult, bool) {
	return s.store.LastEntropyResult(ticketID)
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// CreateTicket registers a new ticket and caches the server's version of it.
func (s *Session) CreateTicket(ctx context.Context, btcAddress string, validDays int) (*model.Ticket, error) {
	t, err := s.api.CreateTicket(ctx, btcAddress, validDays)
	if err != nil {
		return nil, err
	}
	s.store.Upsert(*t)
	return t, nil
}

// TicketAttempts fetches a page of attempt history. Histories are append-only
// and unbounded, so they are fetched on demand rather than cached.
func (s *Session) TicketAttempts(ctx context.Context, ticketID string, limit, skip int) (*api.AttemptsResponse, error) {
	return s.api.GetTicketAttempts(ctx, ticketID, limit, skip)
}

// RequestLowEntropy performs a synchronous entropy exchange.
func (s *Session) RequestLowEntropy(ctx context.Context, address string, stars int) (*api.LowEntropyResponse, error) {
	return s.entropy.RequestLow(ctx, address, stars)
}

// RequestHighEntropy submits an asynchronous entropy request for a cached
// ticket and blocks until its completion event arrives or the wait ends.
func (s *Session) RequestHighEntropy(ctx context.Context, ticketID string, stars int, seed string) (*model.EntropyResult, error) {
	t, ok := s.store.Get(ticketID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTicket, ticketID)
	}
	if !t.IsActive() {
		return nil, fmt.Errorf("%w: %s", ErrTicketInactive, ticketID)
	}
	return s.entropy.RequestHigh(ctx, t, stars, seed)
}

// Refresh re-fetches tickets and stats immediately.
func (s *Session) Refresh(ctx context.Context) error {
	return s.loadState(ctx)
}

// -----------------------------------------------------------------------------
// Push-event merges
// -----------------------------------------------------------------------------

func (s *Session) handleAttempt(data json.RawMessage) {
	var ev model.AttemptEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("malformed attempt event", "error", err)
		return
	}
	s.store.ApplyAttemptEvent(ev)
}

func (s *Session) handleBlockFound(data json.RawMessage) {
	var ev model.BlockFoundEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("malformed block-found event", "error", err)
		return
	}
	s.store.ApplyBlockFound(ev)
}

// handleEntropyCompleted keeps the store consistent for completions delivered
// while no local Await is blocked on them, such as after a process restart
// mid-request. A concurrently blocked Await resolves through its own
// scoped subscription.
func (s *Session) handleEntropyCompleted(data json.RawMessage) {
	var res model.EntropyResult
	if err := json.Unmarshal(data, &res); err != nil {
		s.logger.Warn("malformed entropy completion", "error", err)
		return
	}
	s.store.ApplyEntropyCompleted(res)
}

// -----------------------------------------------------------------------------
// Background workers
// -----------------------------------------------------------------------------

// loadState fetches tickets and stats in parallel and replaces the cached
// state wholesale.
func (s *Session) loadState(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tickets, err := s.api.GetTickets(ctx)
		if err != nil {
			return fmt.Errorf("fetch tickets: %w", err)
		}
		s.store.ReplaceAll(tickets)
		return nil
	})

	g.Go(func() error {
		resp, err := s.api.GetStats(ctx)
		if err != nil {
			return fmt.Errorf("fetch stats: %w", err)
		}
		s.store.SetStats(resp.Stats)
		return nil
	})

	return g.Wait()
}

func (s *Session) requestRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default: // one already queued
	}
}

// refreshLoop periodically re-fetches the full state, and immediately when a
// refresh is requested (for example after a reconnect).
func (s *Session) refreshLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Refresh.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		case <-s.refreshCh:
		}

		if err := s.loadState(s.ctx); err != nil {
			if s.ctx.Err() != nil {
				return
			}
			s.logger.Error("state refresh failed", "error", err)
		}
	}
}

// enqueueRefetch is the store's targeted-refetch hook. It must not block:
// it runs on the router's dispatch goroutine.
func (s *Session) enqueueRefetch(ticketID string) {
	select {
	case s.refetchCh <- ticketID:
	default:
		s.logger.Warn("refetch queue full, falling back to full refresh", "ticket_id", ticketID)
		s.requestRefresh()
	}
}

// refetchLoop re-fetches single tickets whose push events carried no
// authoritative counters.
func (s *Session) refetchLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ticketID := <-s.refetchCh:
			t, err := s.api.GetTicket(s.ctx, ticketID)
			if err != nil {
				if s.ctx.Err() != nil {
					return
				}
				s.logger.Error("ticket refetch failed", "ticket_id", ticketID, "error", err)
				continue
			}
			s.store.Upsert(*t)
		}
	}
}
