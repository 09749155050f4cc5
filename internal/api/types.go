package api

import "github.com/minelotto/lotto-client/internal/model"

// API routes, relative to the base URL.
const (
	routeEntropyLow  = "api/v1/mining/energy"
	routeEntropyHigh = "api/v1/mining/energy/high"
	routeTickets     = "api/lotto/tickets"
	routeStats       = "api/lotto/stats"
)

// LowEntropyRequest is the body for a synchronous entropy request.
type LowEntropyRequest struct {
	Address string `json:"address"`
	Stars   int    `json:"stars"`
}

// LowEntropyResponse is the inline answer to a synchronous request.
type LowEntropyResponse struct {
	RequestID string       `json:"requestId"`
	Energy    model.Energy `json:"energy"`
}

// HighEntropyRequest is the body for an asynchronous entropy submission.
type HighEntropyRequest struct {
	Address string `json:"address"`
	Stars   int    `json:"stars"`
	Seed    string `json:"seed"` // 8 lowercase hex characters
}

// HighEntropyAck acknowledges an asynchronous submission. RequestID is the
// correlation id for the eventual entropy:completed push event.
type HighEntropyAck struct {
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
}

// TicketsResponse wraps the ticket list endpoint.
type TicketsResponse struct {
	Tickets []model.Ticket `json:"tickets"`
}

// CreateTicketRequest is the body for ticket creation.
type CreateTicketRequest struct {
	BtcAddress string `json:"btcAddress"`
	ValidDays  int    `json:"validDays,omitempty"`
}

// SingleTicketResponse wraps endpoints returning one ticket.
type SingleTicketResponse struct {
	Ticket model.Ticket `json:"ticket"`
}

// AttemptsResponse wraps the paginated attempt-history endpoint.
type AttemptsResponse struct {
	Attempts   []model.Attempt  `json:"attempts"`
	Pagination model.Pagination `json:"pagination"`
}

// StatsResponse wraps the stats endpoint.
type StatsResponse struct {
	Stats          model.SystemStats     `json:"stats"`
	RecentAttempts []model.RecentAttempt `json:"recentAttempts"`
}
