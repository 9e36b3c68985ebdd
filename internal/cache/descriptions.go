package cache

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oddsfeed/sdk/internal/apiclient"
)

// Description cache refresh defaults: first tick shortly after startup
// to warm the preload locales, then a long fixed period for the full
// reload.
const (
	DefaultRefreshWarmup = 5 * time.Second
	DefaultRefreshPeriod = 6 * time.Hour
)

// OutcomeItem is one outcome of a market/variant description with its
// translated names.
type OutcomeItem struct {
	ID    string
	Names map[string]string
}

// MarketItem is the cached description of one market type.
type MarketItem struct {
	ID         int
	Names      map[string]string
	Groups     string
	Outcomes   []OutcomeItem
	Specifiers []apiclient.SpecifierDescription
}

func (m *MarketItem) snapshot() *MarketItem {
	out := &MarketItem{
		ID:         m.ID,
		Names:      copyLocaleMap(m.Names),
		Groups:     m.Groups,
		Specifiers: slices.Clone(m.Specifiers),
	}
	out.Outcomes = cloneOutcomes(m.Outcomes)
	return out
}

// VariantItem is the cached description of one dynamic-outcome variant.
type VariantItem struct {
	ID       string
	Outcomes []OutcomeItem
}

func (v *VariantItem) snapshot() *VariantItem {
	return &VariantItem{
		ID:       v.ID,
		Outcomes: cloneOutcomes(v.Outcomes),
	}
}

func cloneOutcomes(in []OutcomeItem) []OutcomeItem {
	out := make([]OutcomeItem, len(in))
	for i, o := range in {
		out[i] = OutcomeItem{ID: o.ID, Names: copyLocaleMap(o.Names)}
	}
	return out
}

// mergeOutcomes folds translated outcome names for one locale into an
// existing outcome list, appending outcomes seen for the first time.
func mergeOutcomes(existing []OutcomeItem, locale string, incoming []apiclient.OutcomeDescription) []OutcomeItem {
	for _, in := range incoming {
		found := false
		for i := range existing {
			if existing[i].ID == in.ID {
				existing[i].Names[locale] = in.Name
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, OutcomeItem{
				ID:    in.ID,
				Names: map[string]string{locale: in.Name},
			})
		}
	}
	return existing
}

// descriptionFetcher is the slice of the data router the description
// caches need.
type descriptionFetcher interface {
	RequestMarketDescriptions(ctx context.Context, locale string) error
	RequestVariantDescriptions(ctx context.Context, locale string) error
}

// refreshLoop owns the recurring description refresh: one warm tick
// after a short delay, then a full reload every period. Started on
// construction of the owning cache, cancelled on Stop.
type refreshLoop struct {
	warmup time.Duration
	period time.Duration
	tick   func(ctx context.Context)
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (l *refreshLoop) start(ctx context.Context) {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		warm := time.NewTimer(l.warmup)
		defer warm.Stop()

		select {
		case <-l.ctx.Done():
			return
		case <-warm.C:
			l.tick(l.ctx)
		}

		ticker := time.NewTicker(l.period)
		defer ticker.Stop()
		for {
			select {
			case <-l.ctx.Done():
				return
			case <-ticker.C:
				l.tick(l.ctx)
			}
		}
	}()
}

func (l *refreshLoop) stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// MarketDescriptionCache caches invariant market descriptions. All
// descriptions for a locale arrive from one list endpoint; the fetched
// set keeps unknown market ids sent by a producer from triggering an
// endless refetch loop.
type MarketDescriptionCache struct {
	markets *localeCache[int, *MarketItem]
	fetcher descriptionFetcher
	logger  *slog.Logger
	preload []string

	fetchedMu sync.Mutex
	fetched   map[string]struct{}
	warmedUp  bool

	loop refreshLoop
}

// DescriptionOption configures a description cache.
type DescriptionOption func(*refreshLoop)

// WithRefreshSchedule overrides the warm-up delay and refresh period.
func WithRefreshSchedule(warmup, period time.Duration) DescriptionOption {
	return func(l *refreshLoop) {
		l.warmup = warmup
		l.period = period
	}
}

// NewMarketDescriptionCache creates the market description cache.
// preload lists the locales kept warm by the periodic refresh.
func NewMarketDescriptionCache(fetcher descriptionFetcher, preload []string, logger *slog.Logger, opts ...DescriptionOption) *MarketDescriptionCache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &MarketDescriptionCache{
		fetcher: fetcher,
		logger:  logger,
		preload: slices.Clone(preload),
		fetched: make(map[string]struct{}),
	}
	c.markets = newLocaleCache[int, *MarketItem](c.fetchLocale)
	c.loop = refreshLoop{
		warmup: DefaultRefreshWarmup,
		period: DefaultRefreshPeriod,
		tick:   c.refresh,
		logger: logger,
	}
	for _, opt := range opts {
		opt(&c.loop)
	}
	return c
}

// Start launches the periodic refresh task.
func (c *MarketDescriptionCache) Start(ctx context.Context) error {
	c.loop.start(ctx)
	c.logger.Info("market description refresh started",
		"warmup", c.loop.warmup,
		"period", c.loop.period,
		"preload_locales", c.preload,
	)
	return nil
}

// Stop cancels the refresh task.
func (c *MarketDescriptionCache) Stop(ctx context.Context) error {
	return c.loop.stop(ctx)
}

// Market returns a single market description in the required locales.
func (c *MarketDescriptionCache) Market(ctx context.Context, id int, locales []string) (*MarketItem, error) {
	return c.markets.get(ctx, id, locales)
}

// fetchLocale loads the full description list for one locale, once.
func (c *MarketDescriptionCache) fetchLocale(ctx context.Context, _ int, locale string) error {
	c.fetchedMu.Lock()
	_, done := c.fetched[locale]
	c.fetchedMu.Unlock()
	if done {
		return nil
	}

	if err := c.fetcher.RequestMarketDescriptions(ctx, locale); err != nil {
		return err
	}

	c.fetchedMu.Lock()
	c.fetched[locale] = struct{}{}
	c.fetchedMu.Unlock()
	return nil
}

// refresh runs one timer tick: the first tick only warms locales not
// fetched yet, later ticks atomically replace the cache contents. The
// fetch lock keeps a refresh from interleaving with on-demand fetches.
func (c *MarketDescriptionCache) refresh(ctx context.Context) {
	c.markets.fetchMu.Lock()
	defer c.markets.fetchMu.Unlock()

	full := c.warmedUp
	c.warmedUp = true

	if full {
		c.fetchedMu.Lock()
		c.fetched = make(map[string]struct{})
		c.fetchedMu.Unlock()
		c.markets.purgeAll()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, locale := range c.preload {
		locale := locale
		g.Go(func() error {
			return c.fetchLocale(gctx, 0, locale)
		})
	}
	if err := g.Wait(); err != nil {
		// Keep the timer alive; the next tick retries.
		c.logger.Warn("market description refresh failed",
			"locales", c.preload,
			"full", full,
			"error", err,
		)
	}
}

// OnMarketDescriptionsFetched merges a fetched description list for one
// locale. Part of the data router fan-out.
func (c *MarketDescriptionCache) OnMarketDescriptionsFetched(locale string, markets []apiclient.MarketDescription) {
	for _, m := range markets {
		c.markets.upsert(m.ID, locale,
			func() *MarketItem {
				return &MarketItem{
					ID:         m.ID,
					Names:      map[string]string{locale: m.Name},
					Groups:     m.Groups,
					Outcomes:   mergeOutcomes(nil, locale, m.Outcomes),
					Specifiers: slices.Clone(m.Specifiers),
				}
			},
			func(item *MarketItem) {
				item.Names[locale] = m.Name
				if m.Groups != "" {
					item.Groups = m.Groups
				}
				item.Outcomes = mergeOutcomes(item.Outcomes, locale, m.Outcomes)
				if len(item.Specifiers) == 0 {
					item.Specifiers = slices.Clone(m.Specifiers)
				}
			},
		)
	}
}

// VariantDescriptionCache caches pre-defined variant descriptions. Same
// shape as the market description cache: list-fetched per locale,
// periodically reloaded in full.
type VariantDescriptionCache struct {
	variants *localeCache[string, *VariantItem]
	fetcher  descriptionFetcher
	logger   *slog.Logger
	preload  []string

	fetchedMu sync.Mutex
	fetched   map[string]struct{}
	warmedUp  bool

	loop refreshLoop
}

// NewVariantDescriptionCache creates the variant description cache.
func NewVariantDescriptionCache(fetcher descriptionFetcher, preload []string, logger *slog.Logger, opts ...DescriptionOption) *VariantDescriptionCache {
	if logger == nil {
		logger = slog.Default()
	}

	c := &VariantDescriptionCache{
		fetcher: fetcher,
		logger:  logger,
		preload: slices.Clone(preload),
		fetched: make(map[string]struct{}),
	}
	c.variants = newLocaleCache[string, *VariantItem](c.fetchLocale)
	c.loop = refreshLoop{
		warmup: DefaultRefreshWarmup,
		period: DefaultRefreshPeriod,
		tick:   c.refresh,
		logger: logger,
	}
	for _, opt := range opts {
		opt(&c.loop)
	}
	return c
}

// Start launches the periodic refresh task.
func (c *VariantDescriptionCache) Start(ctx context.Context) error {
	c.loop.start(ctx)
	c.logger.Info("variant description refresh started",
		"warmup", c.loop.warmup,
		"period", c.loop.period,
		"preload_locales", c.preload,
	)
	return nil
}

// Stop cancels the refresh task.
func (c *VariantDescriptionCache) Stop(ctx context.Context) error {
	return c.loop.stop(ctx)
}

// Variant returns a single variant description in the required locales.
func (c *VariantDescriptionCache) Variant(ctx context.Context, id string, locales []string) (*VariantItem, error) {
	return c.variants.get(ctx, id, locales)
}

func (c *VariantDescriptionCache) fetchLocale(ctx context.Context, _ string, locale string) error {
	c.fetchedMu.Lock()
	_, done := c.fetched[locale]
	c.fetchedMu.Unlock()
	if done {
		return nil
	}

	if err := c.fetcher.RequestVariantDescriptions(ctx, locale); err != nil {
		return err
	}

	c.fetchedMu.Lock()
	c.fetched[locale] = struct{}{}
	c.fetchedMu.Unlock()
	return nil
}

func (c *VariantDescriptionCache) refresh(ctx context.Context) {
	c.variants.fetchMu.Lock()
	defer c.variants.fetchMu.Unlock()

	full := c.warmedUp
	c.warmedUp = true

	if full {
		c.fetchedMu.Lock()
		c.fetched = make(map[string]struct{})
		c.fetchedMu.Unlock()
		c.variants.purgeAll()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, locale := range c.preload {
		locale := locale
		g.Go(func() error {
			return c.fetchLocale(gctx, "", locale)
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Warn("variant description refresh failed",
			"locales", c.preload,
			"full", full,
			"error", err,
		)
	}
}

// OnVariantDescriptionsFetched merges a fetched variant list for one
// locale. Part of the data router fan-out.
func (c *VariantDescriptionCache) OnVariantDescriptionsFetched(locale string, variants []apiclient.VariantDescription) {
	for _, v := range variants {
		c.variants.upsert(v.ID, locale,
			func() *VariantItem {
				return &VariantItem{
					ID:       v.ID,
					Outcomes: mergeOutcomes(nil, locale, v.Outcomes),
				}
			},
			func(item *VariantItem) {
				item.Outcomes = mergeOutcomes(item.Outcomes, locale, v.Outcomes)
			},
		)
	}
}
