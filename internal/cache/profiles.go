package cache

import (
	"context"
	"log/slog"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/urn"
)

// CompetitorItem is the cached aggregate for one competitor.
type CompetitorItem struct {
	ID            urn.URN
	Names         map[string]string
	Abbreviations map[string]string
	Countries     map[string]string
	CountryCode   string
	Virtual       bool
}

func (c *CompetitorItem) snapshot() *CompetitorItem {
	return &CompetitorItem{
		ID:            c.ID,
		Names:         copyLocaleMap(c.Names),
		Abbreviations: copyLocaleMap(c.Abbreviations),
		Countries:     copyLocaleMap(c.Countries),
		CountryCode:   c.CountryCode,
		Virtual:       c.Virtual,
	}
}

// profileFetcher is the slice of the data router the profile cache
// needs.
type profileFetcher interface {
	RequestCompetitor(ctx context.Context, competitorID urn.URN, locale string) error
}

// ProfileCache caches competitor profiles. Competitors also arrive as
// sub-objects of summaries and tournament payloads via the fan-out, so
// most reads never trigger a profile fetch.
type ProfileCache struct {
	profiles *localeCache[urn.URN, *CompetitorItem]
	fetcher  profileFetcher
	logger   *slog.Logger
}

// NewProfileCache creates the competitor profile cache.
func NewProfileCache(fetcher profileFetcher, logger *slog.Logger) *ProfileCache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &ProfileCache{
		fetcher: fetcher,
		logger:  logger,
	}
	c.profiles = newLocaleCache[urn.URN, *CompetitorItem](func(ctx context.Context, id urn.URN, locale string) error {
		return fetcher.RequestCompetitor(ctx, id, locale)
	})
	return c
}

// Competitor returns a single competitor in the required locales.
func (c *ProfileCache) Competitor(ctx context.Context, id urn.URN, locales []string) (*CompetitorItem, error) {
	return c.profiles.get(ctx, id, locales)
}

// Purge removes one competitor entirely.
func (c *ProfileCache) Purge(id urn.URN) {
	c.profiles.purge(id)
}

// OnCompetitorFetched merges a competitor payload for one locale. Part
// of the data router fan-out; invoked for profile responses and for
// competitors embedded in summaries and tournament info.
func (c *ProfileCache) OnCompetitorFetched(locale string, comp apiclient.Competitor) {
	id, err := urn.Parse(comp.ID)
	if err != nil {
		c.logger.Warn("skipping competitor with malformed id", "id", comp.ID, "error", err)
		return
	}

	c.profiles.upsert(id, locale,
		func() *CompetitorItem {
			item := &CompetitorItem{
				ID:            id,
				Names:         map[string]string{locale: comp.Name},
				Abbreviations: map[string]string{},
				Countries:     map[string]string{},
				CountryCode:   comp.CountryCode,
				Virtual:       comp.Virtual,
			}
			if comp.Abbreviation != "" {
				item.Abbreviations[locale] = comp.Abbreviation
			}
			if comp.Country != "" {
				item.Countries[locale] = comp.Country
			}
			return item
		},
		func(item *CompetitorItem) {
			item.Names[locale] = comp.Name
			if comp.Abbreviation != "" {
				item.Abbreviations[locale] = comp.Abbreviation
			}
			if comp.Country != "" {
				item.Countries[locale] = comp.Country
			}
			if comp.CountryCode != "" {
				item.CountryCode = comp.CountryCode
			}
			if comp.Virtual {
				item.Virtual = true
			}
		},
	)
}
