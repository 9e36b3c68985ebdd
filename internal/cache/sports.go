package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/urn"
)

// SportItem is the cached aggregate for one sport.
type SportItem struct {
	ID          urn.URN
	Names       map[string]string // locale → translated name
	CategoryIDs []urn.URN
}

func (s *SportItem) snapshot() *SportItem {
	return &SportItem{
		ID:          s.ID,
		Names:       copyLocaleMap(s.Names),
		CategoryIDs: slices.Clone(s.CategoryIDs),
	}
}

// CategoryItem is the cached aggregate for one category.
type CategoryItem struct {
	ID            urn.URN
	Names         map[string]string
	CountryCode   string
	SportID       urn.URN
	TournamentIDs []urn.URN
}

func (c *CategoryItem) snapshot() *CategoryItem {
	return &CategoryItem{
		ID:            c.ID,
		Names:         copyLocaleMap(c.Names),
		CountryCode:   c.CountryCode,
		SportID:       c.SportID,
		TournamentIDs: slices.Clone(c.TournamentIDs),
	}
}

// TournamentItem is the cached aggregate for one tournament or stage.
// CompetitorIDs and SeasonIDs are filled by the info endpoint; nil
// means not yet known, not known to be empty.
type TournamentItem struct {
	ID              urn.URN
	Names           map[string]string
	SportID         urn.URN
	CategoryID      urn.URN
	ScheduledAt     time.Time
	CurrentSeasonID urn.URN
	SeasonIDs       []urn.URN
	CompetitorIDs   []urn.URN
}

func (t *TournamentItem) snapshot() *TournamentItem {
	return &TournamentItem{
		ID:              t.ID,
		Names:           copyLocaleMap(t.Names),
		SportID:         t.SportID,
		CategoryID:      t.CategoryID,
		ScheduledAt:     t.ScheduledAt,
		CurrentSeasonID: t.CurrentSeasonID,
		SeasonIDs:       slices.Clone(t.SeasonIDs),
		CompetitorIDs:   slices.Clone(t.CompetitorIDs),
	}
}

// sportsFetcher is the slice of the data router the sports cache needs.
type sportsFetcher interface {
	RequestAllSports(ctx context.Context, locale string) error
	RequestAllTournaments(ctx context.Context, locale string) error
	RequestTournamentInfo(ctx context.Context, tournamentID urn.URN, locale string) error
}

// SportsDataCache caches sports, categories and tournaments. Sports and
// categories are filled by the locale-wide list endpoints, so a fetched
// locale covers every item at once; the prefetched set guards against
// refetch loops when a message references a sport the API genuinely
// does not list. Tournaments additionally fetch per id through the info
// endpoint when they arrive outside the list.
type SportsDataCache struct {
	sports      *localeCache[urn.URN, *SportItem]
	categories  *localeCache[urn.URN, *CategoryItem]
	tournaments *localeCache[urn.URN, *TournamentItem]
	fetcher     sportsFetcher
	logger      *slog.Logger

	prefetchMu sync.Mutex
	prefetched map[string]struct{}
}

// NewSportsDataCache creates the sports/categories cache on top of the
// given fetcher.
func NewSportsDataCache(fetcher sportsFetcher, logger *slog.Logger) *SportsDataCache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &SportsDataCache{
		fetcher:    fetcher,
		logger:     logger,
		prefetched: make(map[string]struct{}),
	}
	c.sports = newLocaleCache[urn.URN, *SportItem](c.fetchLocale)
	c.categories = newLocaleCache[urn.URN, *CategoryItem](c.fetchLocale)
	c.tournaments = newLocaleCache[urn.URN, *TournamentItem](c.fetchTournament)
	return c
}

// fetchLocale satisfies fetchFunc for both inner caches: sports and
// categories come from the list endpoints, so the key is irrelevant.
func (c *SportsDataCache) fetchLocale(ctx context.Context, _ urn.URN, locale string) error {
	return c.ensurePrefetched(ctx, []string{locale})
}

// fetchTournament satisfies fetchFunc for the tournament cache: a miss
// goes through the per-id info endpoint, which also carries competitors
// and seasons.
func (c *SportsDataCache) fetchTournament(ctx context.Context, id urn.URN, locale string) error {
	return c.fetcher.RequestTournamentInfo(ctx, id, locale)
}

// ensurePrefetched fetches the sport and tournament lists for every
// locale not yet loaded. Already-fetched locales are skipped, so an id
// absent upstream surfaces as not-found instead of refetching forever.
func (c *SportsDataCache) ensurePrefetched(ctx context.Context, locales []string) error {
	c.prefetchMu.Lock()
	defer c.prefetchMu.Unlock()

	for _, locale := range locales {
		if _, ok := c.prefetched[locale]; ok {
			continue
		}
		if err := c.fetcher.RequestAllSports(ctx, locale); err != nil {
			return fmt.Errorf("prefetch sports [%s]: %w", locale, err)
		}
		if err := c.fetcher.RequestAllTournaments(ctx, locale); err != nil {
			return fmt.Errorf("prefetch tournaments [%s]: %w", locale, err)
		}
		c.prefetched[locale] = struct{}{}
	}
	return nil
}

// Sports returns every cached sport translated into the required
// locales, prefetching the lists first.
func (c *SportsDataCache) Sports(ctx context.Context, locales []string) ([]*SportItem, error) {
	if err := c.ensurePrefetched(ctx, locales); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}

	var out []*SportItem
	for _, id := range c.sports.keys() {
		if item, ok := c.sports.peek(id); ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// Sport returns a single sport in the required locales.
func (c *SportsDataCache) Sport(ctx context.Context, id urn.URN, locales []string) (*SportItem, error) {
	return c.sports.get(ctx, id, locales)
}

// Category returns a single category in the required locales.
func (c *SportsDataCache) Category(ctx context.Context, id urn.URN, locales []string) (*CategoryItem, error) {
	return c.categories.get(ctx, id, locales)
}

// Tournament returns a single tournament or stage in the required
// locales.
func (c *SportsDataCache) Tournament(ctx context.Context, id urn.URN, locales []string) (*TournamentItem, error) {
	return c.tournaments.get(ctx, id, locales)
}

// SportCategories returns the categories currently associated with a
// sport.
func (c *SportsDataCache) SportCategories(ctx context.Context, sportID urn.URN, locales []string) ([]*CategoryItem, error) {
	sport, err := c.Sport(ctx, sportID, locales)
	if err != nil {
		return nil, err
	}

	out := make([]*CategoryItem, 0, len(sport.CategoryIDs))
	for _, catID := range sport.CategoryIDs {
		cat, err := c.categories.get(ctx, catID, locales)
		if err != nil {
			return nil, err
		}
		out = append(out, cat)
	}
	return out, nil
}

// OnSportsFetched merges a fetched sport list for one locale. Part of
// the data router fan-out.
func (c *SportsDataCache) OnSportsFetched(locale string, sports []apiclient.Sport) {
	for _, s := range sports {
		id, err := urn.Parse(s.ID)
		if err != nil {
			c.logger.Warn("skipping sport with malformed id", "id", s.ID, "error", err)
			continue
		}
		c.mergeSport(id, s.Name, locale, urn.Zero)
	}
}

// OnTournamentFetched merges a tournament payload and the sport and
// category sub-objects it carries. Part of the data router fan-out.
func (c *SportsDataCache) OnTournamentFetched(locale string, t apiclient.Tournament) {
	tournamentID, err := urn.Parse(t.ID)
	if err != nil {
		c.logger.Warn("skipping tournament with malformed id", "id", t.ID, "error", err)
		return
	}

	var sportID, categoryID urn.URN
	if t.Sport != nil {
		if id, err := urn.Parse(t.Sport.ID); err == nil {
			sportID = id
		}
	}
	if t.Category != nil {
		if id, err := urn.Parse(t.Category.ID); err == nil {
			categoryID = id
		}
	}

	if sportID.Valid() {
		c.mergeSport(sportID, t.Sport.Name, locale, categoryID)
	}
	if categoryID.Valid() {
		cat := *t.Category
		c.categories.upsert(categoryID, locale,
			func() *CategoryItem {
				return &CategoryItem{
					ID:            categoryID,
					Names:         map[string]string{locale: cat.Name},
					CountryCode:   cat.CountryCode,
					SportID:       sportID,
					TournamentIDs: []urn.URN{tournamentID},
				}
			},
			func(item *CategoryItem) {
				item.Names[locale] = cat.Name
				if cat.CountryCode != "" {
					item.CountryCode = cat.CountryCode
				}
				if !item.SportID.Valid() {
					item.SportID = sportID
				}
				if !slices.Contains(item.TournamentIDs, tournamentID) {
					item.TournamentIDs = append(item.TournamentIDs, tournamentID)
				}
			},
		)
	}

	c.mergeTournament(tournamentID, locale, t, sportID, categoryID)
}

// OnTournamentInfoFetched folds the competitors and seasons of a full
// tournament info payload into the cached tournament. Part of the data
// router fan-out.
func (c *SportsDataCache) OnTournamentInfoFetched(locale string, info apiclient.TournamentInfoResponse) {
	if info.Tournament == nil {
		return
	}
	id, err := urn.Parse(info.Tournament.ID)
	if err != nil {
		return
	}

	competitorIDs := make([]urn.URN, 0, len(info.Competitors))
	for _, comp := range info.Competitors {
		if cid, err := urn.Parse(comp.ID); err == nil {
			competitorIDs = append(competitorIDs, cid)
		}
	}
	seasonIDs := make([]urn.URN, 0, len(info.Seasons))
	for _, season := range info.Seasons {
		if sid, err := urn.Parse(season.ID); err == nil {
			seasonIDs = append(seasonIDs, sid)
		}
	}

	apply := func(item *TournamentItem) {
		if len(competitorIDs) > 0 {
			// The info endpoint carries the full line-up.
			item.CompetitorIDs = competitorIDs
		}
		for _, sid := range seasonIDs {
			if !slices.Contains(item.SeasonIDs, sid) {
				item.SeasonIDs = append(item.SeasonIDs, sid)
			}
		}
	}
	c.tournaments.upsert(id, locale,
		func() *TournamentItem {
			item := &TournamentItem{
				ID:    id,
				Names: map[string]string{locale: info.Tournament.Name},
			}
			apply(item)
			return item
		},
		apply,
	)
}

// mergeTournament folds one tournament payload into the tournament
// cache. Relations stay untouched when the payload does not carry them.
func (c *SportsDataCache) mergeTournament(id urn.URN, locale string, t apiclient.Tournament, sportID, categoryID urn.URN) {
	var seasonID urn.URN
	if t.CurrentSeason != nil {
		if parsed, err := urn.Parse(t.CurrentSeason.ID); err == nil {
			seasonID = parsed
		}
	}

	apply := func(item *TournamentItem) {
		item.Names[locale] = t.Name
		if sportID.Valid() {
			item.SportID = sportID
		}
		if categoryID.Valid() {
			item.CategoryID = categoryID
		}
		if item.ScheduledAt.IsZero() {
			item.ScheduledAt = t.ScheduledAt
		}
		if seasonID.Valid() {
			item.CurrentSeasonID = seasonID
			if !slices.Contains(item.SeasonIDs, seasonID) {
				item.SeasonIDs = append(item.SeasonIDs, seasonID)
			}
		}
	}
	c.tournaments.upsert(id, locale,
		func() *TournamentItem {
			item := &TournamentItem{
				ID:    id,
				Names: make(map[string]string, 1),
			}
			apply(item)
			return item
		},
		apply,
	)
}

// mergeSport folds one sport payload into the sports cache, optionally
// associating a category.
func (c *SportsDataCache) mergeSport(id urn.URN, name, locale string, categoryID urn.URN) {
	c.sports.upsert(id, locale,
		func() *SportItem {
			item := &SportItem{
				ID:    id,
				Names: map[string]string{locale: name},
			}
			if categoryID.Valid() {
				item.CategoryIDs = []urn.URN{categoryID}
			}
			return item
		},
		func(item *SportItem) {
			item.Names[locale] = name
			if categoryID.Valid() && !slices.Contains(item.CategoryIDs, categoryID) {
				item.CategoryIDs = append(item.CategoryIDs, categoryID)
			}
		},
	)
}
