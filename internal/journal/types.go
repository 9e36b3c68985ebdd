package journal

import (
	"time"
)

// WriterConfig contains configuration for the batch writer.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: 1 * time.Second,
	}
}

// oddsRow is one row of the odds_changes table: a single outcome price
// inside one odds change.
type oddsRow struct {
	ID           string // UUID
	EventID      string
	Producer     int
	MarketID     int
	Specifiers   string
	MarketStatus int
	OutcomeID    string
	Odds         float64
	Active       bool
	SentAt       int64 // Microseconds, 0 when the feed omitted it.
	ReceivedAt   int64 // Microseconds
}

// marketEventRow is one row of the market_events table: a stop, cancel,
// rollback or settlement entry for one market.
type marketEventRow struct {
	ID         string // UUID
	Kind       string
	EventID    string
	Producer   int
	MarketID   int
	Specifiers string
	OutcomeID  string // Settlements only, one row per outcome.
	Result     int
	Certainty  int
	SentAt     int64
	ReceivedAt int64
}
