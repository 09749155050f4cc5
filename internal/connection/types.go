package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Envelope is the wire frame for push-channel traffic in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Push-channel event names.
const (
	EventJoin             = "join"
	EventLeave            = "leave"
	EventTicketActivity   = "lotto:attempt"
	EventBlockFound       = "lotto:block_mined"
	EventEntropyCompleted = "entropy:completed"
)

// EntropyRoom returns the room scoping delivery of a single request's
// completion event.
func EntropyRoom(requestID string) string {
	return "entropy:" + requestID
}

// TimestampedMessage wraps raw message data with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// ClientConfig configures a websocket client.
type ClientConfig struct {
	URL          string        // Websocket URL
	Token        string        // Bearer token, sent as a handshake query parameter
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// ManagerConfig configures the channel Manager.
type ManagerConfig struct {
	WSURL             string        // Websocket URL
	ReconnectBaseWait time.Duration // Base wait time for reconnection
	ReconnectMaxWait  time.Duration // Max wait time for reconnection
	PingTimeout       time.Duration // Stale-connection threshold
	WriteTimeout      time.Duration // Write deadline for sends
	EventBufferSize   int           // Buffer size for the outbound event channel
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  60 * time.Second,
		PingTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Second,
		EventBufferSize:   1000,
	}
}
