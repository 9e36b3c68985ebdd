// Package cache implements the locale-aware reference-data caches.
//
// All caches share one concurrency pattern: a lock-free fast path for
// readers whose locales are already cached, and a per-cache fetch lock
// guarding the recheck → fetch → merge sequence so the same
// (key, locale) is never fetched twice concurrently. Fetches go through
// the data router; fetched payloads are merged back via the listener
// callbacks, and a locale counts as cached only after its merge
// completed.
//
// Caches:
//   - SportsDataCache: sports + categories (filled by list endpoints)
//   - SportEventCache: sport events, with sweep and fixture-change marks
//   - ProfileCache: competitor profiles
//   - MarketDescriptionCache / VariantDescriptionCache: market metadata,
//     periodically refreshed in full
//   - EventStatusCache: per-event live status, last-write-wins merges
package cache
