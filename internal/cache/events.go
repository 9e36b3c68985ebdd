package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/urn"
)

// DefaultFixtureMarkWindow bounds how long a fixture-change mark is
// retained before it is forgotten.
const DefaultFixtureMarkWindow = 5 * time.Minute

// EventItem is the cached aggregate for one sport event.
type EventItem struct {
	ID                 urn.URN
	Names              map[string]string // locale → "home vs away" display name
	Scheduled          time.Time
	TournamentID       urn.URN
	CompetitorIDs      []urn.URN
	StartTimeConfirmed bool
}

func (e *EventItem) snapshot() *EventItem {
	return &EventItem{
		ID:                 e.ID,
		Names:              copyLocaleMap(e.Names),
		Scheduled:          e.Scheduled,
		TournamentID:       e.TournamentID,
		CompetitorIDs:      slices.Clone(e.CompetitorIDs),
		StartTimeConfirmed: e.StartTimeConfirmed,
	}
}

// eventFetcher is the slice of the data router the event cache needs.
type eventFetcher interface {
	RequestSummary(ctx context.Context, eventID urn.URN, locale string) error
	RequestTournamentSchedule(ctx context.Context, tournamentID urn.URN, locale string) ([]urn.URN, error)
	RequestDateSchedule(ctx context.Context, date time.Time, locale string) ([]urn.URN, error)
}

// SportEventCache caches sport events by URN. Events are created on
// first reference, merged per locale from summaries and fixtures,
// purged individually on fixture changes and in bulk by the scheduled
// sweep.
type SportEventCache struct {
	events  *localeCache[urn.URN, *EventItem]
	fetcher eventFetcher
	logger  *slog.Logger

	// Fixture-change marks: event id → mark time. A marked id forces
	// the next fixture fetch through the non-cached endpoint exactly
	// once; marks expire after markWindow.
	markMu     sync.Mutex
	marks      map[urn.URN]time.Time
	markWindow time.Duration

	nowFn func() time.Time
}

// EventCacheOption configures a SportEventCache.
type EventCacheOption func(*SportEventCache)

// WithFixtureMarkWindow overrides the fixture-change mark retention
// window.
func WithFixtureMarkWindow(d time.Duration) EventCacheOption {
	return func(c *SportEventCache) {
		c.markWindow = d
	}
}

// WithEventClock overrides the time source, for tests.
func WithEventClock(now func() time.Time) EventCacheOption {
	return func(c *SportEventCache) {
		c.nowFn = now
	}
}

// NewSportEventCache creates the sport-event cache on top of the given
// fetcher.
func NewSportEventCache(fetcher eventFetcher, logger *slog.Logger, opts ...EventCacheOption) *SportEventCache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &SportEventCache{
		fetcher:    fetcher,
		logger:     logger,
		marks:      make(map[urn.URN]time.Time),
		markWindow: DefaultFixtureMarkWindow,
		nowFn:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = newLocaleCache[urn.URN, *EventItem](c.fetchEvent)
	return c
}

func (c *SportEventCache) fetchEvent(ctx context.Context, id urn.URN, locale string) error {
	return c.fetcher.RequestSummary(ctx, id, locale)
}

// Event returns a single sport event in the required locales.
func (c *SportEventCache) Event(ctx context.Context, id urn.URN, locales []string) (*EventItem, error) {
	return c.events.get(ctx, id, locales)
}

// EventIDsForTournament returns the ids of events belonging to a
// tournament, fetching the tournament schedule.
func (c *SportEventCache) EventIDsForTournament(ctx context.Context, tournamentID urn.URN, locale string) ([]urn.URN, error) {
	return c.fetcher.RequestTournamentSchedule(ctx, tournamentID, locale)
}

// EventIDsForDate returns the ids of events scheduled on the given
// date.
func (c *SportEventCache) EventIDsForDate(ctx context.Context, date time.Time, locale string) ([]urn.URN, error) {
	return c.fetcher.RequestDateSchedule(ctx, date, locale)
}

// Purge removes one event entirely; the next read re-fetches it.
func (c *SportEventCache) Purge(id urn.URN) {
	c.events.purge(id)
}

// SweepOlderThan removes every event scheduled strictly before cutoff
// and returns the number removed. Expired fixture marks are dropped in
// the same pass.
func (c *SportEventCache) SweepOlderThan(cutoff time.Time) int {
	n := c.events.deleteIf(func(_ urn.URN, e *EventItem) bool {
		return !e.Scheduled.IsZero() && e.Scheduled.Before(cutoff)
	})

	now := c.nowFn()
	c.markMu.Lock()
	for id, at := range c.marks {
		if now.Sub(at) > c.markWindow {
			delete(c.marks, id)
		}
	}
	c.markMu.Unlock()

	if n > 0 {
		c.logger.Info("swept sport events", "removed", n, "cutoff", cutoff)
	}
	return n
}

// MarkFixtureChange records that the next fixture read for id must
// bypass the cached fixture endpoint. Marking is idempotent within the
// retention window: a duplicate fixture_change does not open a second
// bypass window. Reports whether a new mark was set.
func (c *SportEventCache) MarkFixtureChange(id urn.URN) bool {
	now := c.nowFn()

	c.markMu.Lock()
	defer c.markMu.Unlock()

	if at, ok := c.marks[id]; ok && now.Sub(at) <= c.markWindow {
		return false
	}
	c.marks[id] = now
	return true
}

// TakeFixtureMark consumes a pending fixture-change mark for id,
// reporting whether the next fixture fetch must bypass the cache.
func (c *SportEventCache) TakeFixtureMark(id urn.URN) bool {
	now := c.nowFn()

	c.markMu.Lock()
	defer c.markMu.Unlock()

	at, ok := c.marks[id]
	if !ok {
		return false
	}
	delete(c.marks, id)
	return now.Sub(at) <= c.markWindow
}

// Len returns the number of cached events.
func (c *SportEventCache) Len() int {
	return c.events.len()
}

// OnEventFetched merges a fetched sport-event payload for one locale.
// Part of the data router fan-out; also invoked for events embedded in
// schedule responses.
func (c *SportEventCache) OnEventFetched(locale string, ev apiclient.SportEvent) {
	c.mergeEvent(locale, ev, false)
}

func (c *SportEventCache) mergeEvent(locale string, ev apiclient.SportEvent, startConfirmed bool) {
	id, err := urn.Parse(ev.ID)
	if err != nil {
		c.logger.Warn("skipping event with malformed id", "id", ev.ID, "error", err)
		return
	}

	var tournamentID urn.URN
	if ev.Tournament != nil {
		if tid, err := urn.Parse(ev.Tournament.ID); err == nil {
			tournamentID = tid
		}
	}

	var competitorIDs []urn.URN
	for _, comp := range ev.Competitors {
		if cid, err := urn.Parse(comp.ID); err == nil {
			competitorIDs = append(competitorIDs, cid)
		}
	}

	name := displayName(ev.Competitors)

	c.events.upsert(id, locale,
		func() *EventItem {
			return &EventItem{
				ID:                 id,
				Names:              map[string]string{locale: name},
				Scheduled:          ev.Scheduled,
				TournamentID:       tournamentID,
				CompetitorIDs:      competitorIDs,
				StartTimeConfirmed: startConfirmed,
			}
		},
		func(item *EventItem) {
			item.Names[locale] = name
			if !ev.Scheduled.IsZero() {
				item.Scheduled = ev.Scheduled
			}
			if tournamentID.Valid() {
				item.TournamentID = tournamentID
			}
			if len(competitorIDs) > 0 {
				item.CompetitorIDs = competitorIDs
			}
			if startConfirmed {
				item.StartTimeConfirmed = true
			}
		},
	)
}

// OnFixtureFetched merges a fetched fixture payload for one locale.
func (c *SportEventCache) OnFixtureFetched(locale string, fx apiclient.FixtureResponse) {
	if fx.SportEvent == nil {
		return
	}
	c.mergeEvent(locale, *fx.SportEvent, fx.StartTimeConfirmed)
}

// displayName renders the "home vs away" event name used when the
// summary carries no explicit name.
func displayName(competitors []apiclient.Competitor) string {
	switch len(competitors) {
	case 0:
		return ""
	case 1:
		return competitors[0].Name
	default:
		return competitors[0].Name + " vs " + competitors[1].Name
	}
}
