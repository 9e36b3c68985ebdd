package cache

import (
	"context"
	"fmt"
	"sync"
)

// snapshotter is implemented by cache items; snapshot returns a deep
// copy safe to hand to readers while merges continue on the original.
type snapshotter[V any] interface {
	snapshot() V
}

// fetchFunc loads data for one (key, locale) through the data router.
// The fetched payload arrives back via the cache's merge callbacks, so
// a successful fetch does not imply the key exists upstream.
type fetchFunc[K comparable] func(ctx context.Context, key K, locale string) error

// entry pairs an item with the set of locales whose data has been fully
// merged. A locale is added only after its merge completed, which makes
// the set act as a completion barrier for readers.
type entry[V any] struct {
	item    V
	locales map[string]struct{}
}

// localeCache is the generic store shared by every locale-aware cache:
// a map guarded by an RWMutex for reads and merges, plus a single fetch
// mutex serializing outbound fetches.
type localeCache[K comparable, V snapshotter[V]] struct {
	mu    sync.RWMutex
	items map[K]*entry[V]

	// fetchMu serializes the recheck → fetch → merge sequence so the
	// same (key, locale) is never requested twice concurrently.
	fetchMu sync.Mutex
	fetch   fetchFunc[K]
}

func newLocaleCache[K comparable, V snapshotter[V]](fetch fetchFunc[K]) *localeCache[K, V] {
	return &localeCache[K, V]{
		items: make(map[K]*entry[V]),
		fetch: fetch,
	}
}

// get returns a snapshot of the item once every required locale is
// cached, fetching whatever is missing. Readers whose locales are
// already cached never touch the fetch lock.
func (c *localeCache[K, V]) get(ctx context.Context, key K, locales []string) (V, error) {
	var zero V
	if len(locales) == 0 {
		return zero, fmt.Errorf("%w: no locales requested", ErrItemNotFound)
	}

	// Fast path.
	if item, ok := c.snapshotIfComplete(key, locales); ok {
		return item, nil
	}

	c.fetchMu.Lock()
	// Recheck: another caller may have fetched while we waited.
	if item, ok := c.snapshotIfComplete(key, locales); ok {
		c.fetchMu.Unlock()
		return item, nil
	}

	var fetchErr error
	for _, locale := range c.missingLocales(key, locales) {
		if err := c.fetch(ctx, key, locale); err != nil {
			fetchErr = err
			break
		}
	}
	c.fetchMu.Unlock()

	// Revalidate after the fetch; the merges happened through the
	// listener callbacks while the fetch lock was held.
	if item, ok := c.snapshotIfComplete(key, locales); ok {
		return item, nil
	}
	if fetchErr != nil {
		return zero, fmt.Errorf("%w: %w", ErrCacheUnavailable, fetchErr)
	}
	return zero, fmt.Errorf("%w: %v found no data in %v", ErrItemNotFound, key, locales)
}

// snapshotIfComplete returns a copy of the item if every required
// locale is cached.
func (c *localeCache[K, V]) snapshotIfComplete(key K, locales []string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	for _, l := range locales {
		if _, ok := e.locales[l]; !ok {
			return zero, false
		}
	}
	return e.item.snapshot(), true
}

// missingLocales returns the required locales not yet cached for key.
func (c *localeCache[K, V]) missingLocales(key K, locales []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok {
		return locales
	}

	var missing []string
	for _, l := range locales {
		if _, ok := e.locales[l]; !ok {
			missing = append(missing, l)
		}
	}
	return missing
}

// peek returns a snapshot of the item regardless of cached locales.
func (c *localeCache[K, V]) peek(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	return e.item.snapshot(), true
}

// upsert runs the merge path for one (key, locale): create builds a new
// item when the key is absent, merge folds payload data into an
// existing one. The locale is recorded as cached only after merge
// returns, and an already-cached locale is never removed.
func (c *localeCache[K, V]) upsert(key K, locale string, create func() V, merge func(V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		e = &entry[V]{
			item:    create(),
			locales: make(map[string]struct{}),
		}
		c.items[key] = e
	} else {
		merge(e.item)
	}

	if locale != "" {
		e.locales[locale] = struct{}{}
	}
}

// purge removes the item entirely; a later get re-fetches from scratch.
func (c *localeCache[K, V]) purge(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// purgeAll drops every item. Callers holding fetchMu use it for full
// refreshes.
func (c *localeCache[K, V]) purgeAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*entry[V])
}

// keys returns the currently cached keys.
func (c *localeCache[K, V]) keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]K, 0, len(c.items))
	for k := range c.items {
		out = append(out, k)
	}
	return out
}

// cachedLocales returns a copy of the locale set for key.
func (c *localeCache[K, V]) cachedLocales(key K) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.locales))
	for l := range e.locales {
		out = append(out, l)
	}
	return out
}

// deleteIf removes every item for which pred returns true and reports
// how many were removed.
func (c *localeCache[K, V]) deleteIf(pred func(K, V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.items {
		if pred(k, e.item) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

func (c *localeCache[K, V]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// copyLocaleMap deep-copies a locale → value map.
func copyLocaleMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
