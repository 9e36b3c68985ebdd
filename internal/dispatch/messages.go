package dispatch

import (
	"encoding/json"
	"time"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/routing"
	"github.com/oddsfeed/sdk/internal/urn"
)

// Message type tags on the wire.
const (
	typeAlive             = "alive"
	typeSnapshotComplete  = "snapshot_complete"
	typeFixtureChange     = "fixture_change"
	typeOddsChange        = "odds_change"
	typeBetStop           = "bet_stop"
	typeBetCancel         = "bet_cancel"
	typeRollbackBetCancel = "rollback_bet_cancel"
	typeBetSettlement     = "bet_settlement"
)

// envelope is the common outer frame of every feed message.
type envelope struct {
	Type       string `json:"type"`
	RoutingKey string `json:"routing_key"`
	Product    int    `json:"product"`
	Timestamp  int64  `json:"timestamp"` // Milliseconds.
	EventID    string `json:"event_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`

	// alive only. 0 means the producer restarted and dropped its
	// subscriptions.
	Subscribed *int `json:"subscribed,omitempty"`

	// fixture_change only.
	ChangeType string `json:"change_type,omitempty"`

	// Market-bearing payloads.
	Markets []marketWire `json:"markets,omitempty"`

	// odds_change and bet_stop.
	Status *apiclient.EventStatus `json:"sport_event_status,omitempty"`

	// bet_stop only.
	Groups       string `json:"groups,omitempty"`
	MarketStatus int    `json:"market_status,omitempty"`

	// bet_cancel only.
	StartTime int64 `json:"start_time,omitempty"`
	EndTime   int64 `json:"end_time,omitempty"`

	// bet_settlement only.
	Certainty int `json:"certainty,omitempty"`
}

// marketWire is one market entry inside a market-bearing payload.
type marketWire struct {
	ID         int           `json:"id"`
	Specifiers string        `json:"specifiers,omitempty"`
	Status     int           `json:"status,omitempty"`
	VoidReason *int          `json:"void_reason,omitempty"`
	Outcomes   []outcomeWire `json:"outcomes,omitempty"`
}

type outcomeWire struct {
	ID     string  `json:"id"`
	Odds   float64 `json:"odds,omitempty"`
	Active *bool   `json:"active,omitempty"`
	Result *int    `json:"result,omitempty"`
}

func parseEnvelope(data []byte) (envelope, error) {
	var env envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

func (e envelope) sentAt() time.Time {
	if e.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(e.Timestamp)
}

// OutcomeOdds is one priced outcome inside an odds change.
type OutcomeOdds struct {
	ID     string
	Odds   float64
	Active bool
}

// MarketUpdate is one market inside an odds change.
type MarketUpdate struct {
	ID         int
	Specifiers string
	Status     int
	Outcomes   []OutcomeOdds
}

// OddsChange carries the priced markets of one event plus the optional
// status block that rode along with them.
type OddsChange struct {
	Producer   int
	EventID    urn.URN
	RoutingKey routing.Key
	Markets    []MarketUpdate
	SentAt     time.Time
	ReceivedAt time.Time
}

// MarketRef identifies one market without pricing, as carried by bet
// cancel and rollback payloads.
type MarketRef struct {
	ID         int
	Specifiers string
}

// SettledOutcome is one outcome result inside a bet settlement.
type SettledOutcome struct {
	ID     string
	Result int
}

// SettledMarket is one settled market with its outcome results.
type SettledMarket struct {
	ID         int
	Specifiers string
	Outcomes   []SettledOutcome
}

// MarketEventKind tags the variants of MarketEvent.
type MarketEventKind string

const (
	KindBetStop           MarketEventKind = "bet_stop"
	KindBetCancel         MarketEventKind = "bet_cancel"
	KindRollbackBetCancel MarketEventKind = "rollback_bet_cancel"
	KindBetSettlement     MarketEventKind = "bet_settlement"
)

// MarketEvent is one non-pricing market message (stop, cancel,
// rollback, settlement) translated into domain values. Fields beyond
// the common set are populated per Kind.
type MarketEvent struct {
	Kind       MarketEventKind
	Producer   int
	EventID    urn.URN
	RoutingKey routing.Key
	SentAt     time.Time
	ReceivedAt time.Time

	// KindBetStop.
	Groups       string
	MarketStatus int

	// KindBetCancel and KindRollbackBetCancel.
	Markets   []MarketRef
	StartTime time.Time
	EndTime   time.Time

	// KindBetSettlement.
	Certainty int
	Settled   []SettledMarket
}
