package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// RawMessage is one feed frame handed to the dispatcher. Data is the
// untouched wire payload; the envelope (routing key, message type) is
// parsed downstream.
type RawMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// ConnEventType classifies a connection lifecycle event.
type ConnEventType string

const (
	ConnUp   ConnEventType = "up"
	ConnDown ConnEventType = "down"
)

// ConnEvent is a connection up/down transition observed by the
// consumer.
type ConnEvent struct {
	Type ConnEventType
	At   time.Time
	Err  error // Cause, set on ConnDown.
}

// ClientConfig holds configuration for a single websocket connection.
type ClientConfig struct {
	URL         string
	AccessToken string

	// BufferSize is the capacity of the outbound message channel.
	BufferSize int

	WriteTimeout time.Duration

	// PingTimeout is how long the connection may go without any
	// ping/pong traffic before it is declared stale.
	PingTimeout time.Duration
}

// DefaultClientConfig returns sensible defaults for everything but the
// URL and token.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:   4096,
		WriteTimeout: 10 * time.Second,
		PingTimeout:  90 * time.Second,
	}
}
