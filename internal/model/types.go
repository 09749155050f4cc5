package model

// Ticket statuses as reported by the server.
const (
	TicketStatusActive    = "active"
	TicketStatusExpired   = "expired"
	TicketStatusSuspended = "suspended"
)

// -----------------------------------------------------------------------------
// Ticket Types
// -----------------------------------------------------------------------------

// Ticket is a standing entitlement to periodic mining attempts.
//
// TotalAttempts and LastAttemptAt always hold the last authoritative values
// observed from the server. The client never computes them locally.
type Ticket struct {
	ID               string `json:"id"`               // Database id
	TicketID         string `json:"ticketId"`         // Public ticket identifier
	BtcAddress       string `json:"btcAddress"`       // Payout address
	Status           string `json:"status"`           // active, expired, suspended
	ValidUntil       string `json:"validUntil"`       // Validity deadline (RFC 3339)
	FrequencyMinutes int    `json:"frequencyMinutes"` // Minutes between automatic attempts
	Stars            int    `json:"stars"`            // Difficulty of automatic attempts
	TotalAttempts    int64  `json:"totalAttempts"`    // Authoritative attempt counter
	LastAttemptAt    string `json:"lastAttemptAt"`    // Last attempt time (RFC 3339, empty if none)
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
}

// IsActive reports whether the ticket can still produce attempts.
func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusActive
}

// Attempt is one computed entropy result for a ticket. Immutable once
// received; histories are append-only.
type Attempt struct {
	ID          string `json:"id"`
	BlockHeight int64  `json:"blockHeight"`
	Hash        string `json:"hash"`
	Nonce       string `json:"nonce"`
	Stars       int    `json:"stars"`
	IsBlock     bool   `json:"isBlock"`             // Qualifying (winning) outcome
	BlockHash   string `json:"blockHash,omitempty"` // Set only when IsBlock
	MerkleRoot  string `json:"merkleRoot,omitempty"`
	PrevHash    string `json:"prevHash,omitempty"`
	Bits        string `json:"bits,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"` // Block timestamp (Unix seconds)
	AttemptedAt string `json:"attemptedAt"`         // RFC 3339
}

// -----------------------------------------------------------------------------
// Entropy Types
// -----------------------------------------------------------------------------

// Energy is the synchronous (low-effort) entropy artifact returned inline.
type Energy struct {
	Nonce       int64  `json:"nonce"`
	Hash        string `json:"hash"`
	MerkleRoot  string `json:"merkleRoot"`
	BlockHeight int64  `json:"blockHeight"`
	PrevHash    string `json:"prevHash"`
	Bits        string `json:"bits"`
	Timestamp   int64  `json:"timestamp"`
	IsBlock     bool   `json:"isBlock"`
	BlockHash   string `json:"blockHash,omitempty"`
}

// EntropyResult is the completion payload for a high-effort entropy request,
// delivered over the push channel and matched to its submission by RequestID.
type EntropyResult struct {
	RequestID    string `json:"requestId"`
	Nonce        int64  `json:"nonce"`
	Hash         string `json:"hash"`
	MerkleRoot   string `json:"merkleRoot"`
	BlockHeight  int64  `json:"blockHeight"`
	PrevHash     string `json:"prevHash"`
	Bits         string `json:"bits"`
	Timestamp    int64  `json:"timestamp"`
	Stars        int    `json:"stars"`
	LeadingZeros int    `json:"leadingZeros"`
	Address      string `json:"address"`
	Seed         string `json:"seed"`
}

// -----------------------------------------------------------------------------
// Aggregate Types
// -----------------------------------------------------------------------------

// SystemStats is a whole-snapshot aggregate. It is replaced on each fetch,
// never merged incrementally.
type SystemStats struct {
	TotalActiveTickets int64  `json:"totalActiveTickets"`
	TotalAttempts      int64  `json:"totalAttempts"`
	TotalBlocksMined   int64  `json:"totalBlocksMined"`
	LastBlockHeight    int64  `json:"lastBlockHeight"`
	Difficulty         string `json:"difficulty,omitempty"`
}

// RecentAttempt is a row in the stats endpoint's recent-activity list.
type RecentAttempt struct {
	TicketID    string `json:"ticketId"`
	BlockHeight int64  `json:"blockHeight"`
	Hash        string `json:"hash"`
	Stars       int    `json:"stars"`
	IsBlock     bool   `json:"isBlock"`
	AttemptedAt string `json:"attemptedAt"`
}

// Pagination describes a page of results from a list endpoint.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Skip    int  `json:"skip"`
	HasMore bool `json:"hasMore"`
}

// -----------------------------------------------------------------------------
// Push Event Types
// -----------------------------------------------------------------------------

// TicketCounters carries authoritative counters in a ticket-activity event.
type TicketCounters struct {
	TotalAttempts int64  `json:"totalAttempts"`
	LastAttemptAt string `json:"lastAttemptAt"`
}

// AttemptEvent is the lotto:attempt push event: a new attempt plus the
// ticket's authoritative counters after it.
type AttemptEvent struct {
	TicketID string         `json:"ticketId"`
	Attempt  Attempt        `json:"attempt"`
	Ticket   TicketCounters `json:"ticket"`
}

// BlockFoundEvent is the lotto:block_mined push event. It carries no
// authoritative ticket counters.
type BlockFoundEvent struct {
	TicketID   string  `json:"ticketId"`
	Attempt    Attempt `json:"attempt"`
	BtcAddress string  `json:"btcAddress"`
}
