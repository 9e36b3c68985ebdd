// Package routing parses broker routing keys into their structured form.
//
// Feed routing keys are dot-delimited:
//
//	{priority}.{prematch}.{live}.{type}.{sport_id}.{urn_prefix:urn_type}.{event_id}.{node}
//
// e.g. "hi.pre.live.fixture_change.40.sr:match.1234.-". System messages
// (alive, snapshot_complete, producer state) carry no sport/event scope
// and use wildcard segments ("-.-.-.alive.#").
package routing

import (
	"strconv"
	"strings"

	"github.com/oddsfeed/sdk/internal/urn"
)

// Segment positions fixed by the feed protocol.
const (
	posType    = 3
	posSportID = 4
	posURNType = 5
	posEventID = 6

	minScopedSegments = 7
)

// sportURNType is the entity type used for sport-scope identifiers.
const sportURNType = "sport"

// Key is the structured form of a broker routing key.
type Key struct {
	FullKey string  // The raw routing key as received
	Type    string  // Message type token ("odds_change", "alive", ...)
	SportID urn.URN // Sport scope; zero when not event-scoped
	EventID urn.URN // Event scope; zero when not event-scoped
	System  bool    // True for scope-less system messages
}

// Parse converts a raw routing key into a Key. It is total: malformed
// input degrades to a scope-less system key rather than failing, so an
// unrecognized message is surfaced to the system handlers instead of
// being dropped.
func Parse(raw string) Key {
	parts := strings.Split(raw, ".")

	k := Key{FullKey: raw, System: true}
	if len(parts) > posType {
		k.Type = typeToken(parts[posType])
	}

	if len(parts) < minScopedSegments {
		return k
	}

	sportNum, err := strconv.ParseInt(parts[posSportID], 10, 64)
	if err != nil {
		return k
	}

	prefix, urnType, ok := strings.Cut(parts[posURNType], ":")
	if !ok || prefix == "" || urnType == "" {
		return k
	}

	eventNum, err := strconv.ParseInt(parts[posEventID], 10, 64)
	if err != nil {
		return k
	}

	k.SportID = urn.URN{Prefix: prefix, Type: sportURNType, ID: sportNum}
	k.EventID = urn.URN{Prefix: prefix, Type: urnType, ID: eventNum}
	k.System = false
	return k
}

// typeToken normalizes the message type segment; wildcard segments have
// no type.
func typeToken(s string) string {
	if s == "-" || s == "#" || s == "*" {
		return ""
	}
	return s
}
