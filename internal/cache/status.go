package cache

import (
	"sync"
	"time"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/urn"
)

// StatusItem is the current live status of one sport event. Unlike the
// entity caches it carries no translations: status fields are
// locale-independent and merged last-write-wins per field.
type StatusItem struct {
	EventID       urn.URN
	Status        string
	MatchStatus   string
	HomeScore     *int
	AwayScore     *int
	WinnerID      string
	BetStopped    bool
	MatchClock    string
	RemainingTime string
	UpdatedAt     time.Time
}

func (s *StatusItem) clone() *StatusItem {
	out := *s
	if s.HomeScore != nil {
		v := *s.HomeScore
		out.HomeScore = &v
	}
	if s.AwayScore != nil {
		v := *s.AwayScore
		out.AwayScore = &v
	}
	return &out
}

// EventStatusCache holds the live status per event id, fed by
// status-bearing feed messages and by fetched summaries.
type EventStatusCache struct {
	mu    sync.RWMutex
	items map[urn.URN]*StatusItem

	nowFn func() time.Time
}

// NewEventStatusCache creates an empty status cache.
func NewEventStatusCache() *EventStatusCache {
	return &EventStatusCache{
		items: make(map[urn.URN]*StatusItem),
		nowFn: time.Now,
	}
}

// Status returns a copy of the current status for id.
func (c *EventStatusCache) Status(id urn.URN) (*StatusItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return item.clone(), true
}

// Merge folds a status payload into the cached status for id. Within a
// single payload the last write wins per field; fields the payload does
// not carry stay untouched.
func (c *EventStatusCache) Merge(id urn.URN, st apiclient.EventStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		item = &StatusItem{EventID: id}
		c.items[id] = item
	}

	if st.Status != "" {
		item.Status = st.Status
	}
	if st.MatchStatus != "" {
		item.MatchStatus = st.MatchStatus
	}
	if st.HomeScore != nil {
		v := *st.HomeScore
		item.HomeScore = &v
	}
	if st.AwayScore != nil {
		v := *st.AwayScore
		item.AwayScore = &v
	}
	if st.WinnerID != "" {
		item.WinnerID = st.WinnerID
	}
	if st.BetStopped != nil {
		item.BetStopped = *st.BetStopped
	}
	if st.MatchClock != "" {
		item.MatchClock = st.MatchClock
	}
	if st.RemainingTime != "" {
		item.RemainingTime = st.RemainingTime
	}
	item.UpdatedAt = c.nowFn()
}

// OnStatusFetched merges the status block of a fetched summary. Part of
// the data router fan-out.
func (c *EventStatusCache) OnStatusFetched(eventID urn.URN, st apiclient.EventStatus) {
	c.Merge(eventID, st)
}

// Purge removes the status for id.
func (c *EventStatusCache) Purge(id urn.URN) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// Len returns the number of cached statuses.
func (c *EventStatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
