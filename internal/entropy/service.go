// Package entropy builds and drives entropy requests: the synchronous
// low-effort kind answered inline, and the asynchronous high-effort kind
// resolved through the request correlator.
package entropy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/minelotto/lotto-client/internal/api"
	"github.com/minelotto/lotto-client/internal/connection"
	"github.com/minelotto/lotto-client/internal/correlate"
	"github.com/minelotto/lotto-client/internal/model"
)

// Default request parameters, matching the server's expectations.
const (
	DefaultLowStars  = 5
	DefaultHighStars = 12
)

// PendingGuard enforces the one-outstanding-request-per-ticket rule.
// Implemented by the ticket store.
type PendingGuard interface {
	BeginEntropy(ticketID string) error
	FinishEntropy(ticketID string, res *model.EntropyResult)
}

// Config holds service configuration.
type Config struct {
	RequestTimeout time.Duration // Bound on the wait for a completion event
	LowStars       int           // Default stars for synchronous requests
	HighStars      int           // Default stars for asynchronous requests
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: correlate.DefaultTimeout,
		LowStars:       DefaultLowStars,
		HighStars:      DefaultHighStars,
	}
}

// Service issues entropy requests.
type Service struct {
	cfg        Config
	api        *api.Client
	correlator *correlate.Correlator
	guard      PendingGuard
	logger     *slog.Logger
}

// NewService creates an entropy request service.
func NewService(cfg Config, apiClient *api.Client, correlator *correlate.Correlator, guard PendingGuard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = correlate.DefaultTimeout
	}
	if cfg.LowStars <= 0 {
		cfg.LowStars = DefaultLowStars
	}
	if cfg.HighStars <= 0 {
		cfg.HighStars = DefaultHighStars
	}

	return &Service{
		cfg:        cfg,
		api:        apiClient,
		correlator: correlator,
		guard:      guard,
		logger:     logger,
	}
}

// RequestLow performs a synchronous entropy exchange. No correlation
// bookkeeping: the response is the answer.
func (s *Service) RequestLow(ctx context.Context, address string, stars int) (*api.LowEntropyResponse, error) {
	if stars <= 0 {
		stars = s.cfg.LowStars
	}
	return s.api.RequestLowEntropy(ctx, address, stars)
}

// RequestHigh submits an asynchronous entropy request for a ticket and waits
// for its completion event. An empty seed is generated; a supplied seed is
// normalized and validated before any network activity. Only one request may
// be outstanding per ticket.
func (s *Service) RequestHigh(ctx context.Context, ticket model.Ticket, stars int, seed string) (*model.EntropyResult, error) {
	if stars <= 0 {
		stars = s.cfg.HighStars
	}

	if seed == "" {
		generated, err := GenerateSeed()
		if err != nil {
			return nil, err
		}
		seed = generated
	} else {
		seed = NormalizeSeed(seed)
		if err := ValidateSeed(seed); err != nil {
			return nil, err
		}
	}

	if err := s.guard.BeginEntropy(ticket.TicketID); err != nil {
		return nil, err
	}

	ack, err := s.api.RequestHighEntropy(ctx, ticket.BtcAddress, stars, seed)
	if err != nil {
		// Submission failed: no pending entry was registered, so only the
		// per-ticket guard needs releasing.
		s.guard.FinishEntropy(ticket.TicketID, nil)
		return nil, err
	}

	s.logger.Debug("high entropy submitted",
		"ticket_id", ticket.TicketID,
		"request_id", ack.RequestID,
		"stars", stars,
	)

	pending, err := s.correlator.Await(ack.RequestID, connection.EventEntropyCompleted, s.cfg.RequestTimeout)
	if err != nil {
		s.guard.FinishEntropy(ticket.TicketID, nil)
		return nil, fmt.Errorf("await completion %s: %w", ack.RequestID, err)
	}

	payload, err := pending.Wait(ctx)
	if err != nil {
		s.guard.FinishEntropy(ticket.TicketID, nil)
		return nil, err
	}

	var result model.EntropyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.guard.FinishEntropy(ticket.TicketID, nil)
		return nil, fmt.Errorf("unmarshal completion %s: %w", ack.RequestID, err)
	}

	s.guard.FinishEntropy(ticket.TicketID, &result)
	return &result, nil
}
