package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeItem is a minimal snapshotter for exercising the generic store.
type fakeItem struct {
	names map[string]string
}

func (f *fakeItem) snapshot() *fakeItem {
	return &fakeItem{names: copyLocaleMap(f.names)}
}

// newCountingCache wires a localeCache whose fetch simulates the data
// router round trip: it bumps a counter and merges a value through the
// same upsert path the listener callbacks use.
func newCountingCache(calls *atomic.Int64, release <-chan struct{}) *localeCache[string, *fakeItem] {
	var c *localeCache[string, *fakeItem]
	c = newLocaleCache[string, *fakeItem](func(_ context.Context, key, locale string) error {
		calls.Add(1)
		if release != nil {
			<-release
		}
		c.upsert(key, locale,
			func() *fakeItem {
				return &fakeItem{names: map[string]string{locale: "name-" + locale}}
			},
			func(item *fakeItem) {
				item.names[locale] = "name-" + locale
			},
		)
		return nil
	})
	return c
}

func TestGet_FetchesOncePerLocale(t *testing.T) {
	var calls atomic.Int64
	c := newCountingCache(&calls, nil)

	item, err := c.get(context.Background(), "k1", []string{"en"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got, want := item.names["en"], "name-en"; got != want {
		t.Errorf("name = %q, want %q", got, want)
	}

	if _, err := c.get(context.Background(), "k1", []string{"en"}); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestGet_ConcurrentReadersSingleFetch(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})
	c := newCountingCache(&calls, release)

	const readers = 8
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for j := 0; j < readers; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.get(context.Background(), "k1", []string{"en"})
			errs <- err
		}()
	}

	// One goroutine is inside the fetch, the rest are queued on the
	// fetch lock or about to hit the recheck.
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestGet_NewLocaleDoesNotClobberExisting(t *testing.T) {
	var calls atomic.Int64
	c := newCountingCache(&calls, nil)

	if _, err := c.get(context.Background(), "k1", []string{"en"}); err != nil {
		t.Fatalf("get en: %v", err)
	}
	item, err := c.get(context.Background(), "k1", []string{"de"})
	if err != nil {
		t.Fatalf("get de: %v", err)
	}

	if got, want := item.names["en"], "name-en"; got != want {
		t.Errorf("en name after de merge = %q, want %q", got, want)
	}
	if got, want := item.names["de"], "name-de"; got != want {
		t.Errorf("de name = %q, want %q", got, want)
	}

	locales := c.cachedLocales("k1")
	if len(locales) != 2 {
		t.Errorf("cachedLocales = %v, want en and de", locales)
	}
}

func TestGet_SnapshotIsolation(t *testing.T) {
	var calls atomic.Int64
	c := newCountingCache(&calls, nil)

	first, err := c.get(context.Background(), "k1", []string{"en"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	first.names["en"] = "mutated"

	second, err := c.get(context.Background(), "k1", []string{"en"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got, want := second.names["en"], "name-en"; got != want {
		t.Errorf("name = %q, want %q: caller mutation leaked into cache", got, want)
	}
}

func TestGet_FetchErrorIsUnavailable(t *testing.T) {
	fetchErr := errors.New("upstream down")
	c := newLocaleCache[string, *fakeItem](func(context.Context, string, string) error {
		return fetchErr
	})

	_, err := c.get(context.Background(), "k1", []string{"en"})
	if !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("err = %v, want ErrCacheUnavailable", err)
	}
	if !errors.Is(err, fetchErr) {
		t.Errorf("err = %v, want wrapped fetch error", err)
	}
}

func TestGet_EmptyFetchIsNotFound(t *testing.T) {
	// Fetch succeeds but merges nothing: the id does not exist upstream.
	c := newLocaleCache[string, *fakeItem](func(context.Context, string, string) error {
		return nil
	})

	_, err := c.get(context.Background(), "missing", []string{"en"})
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
}

func TestGet_NoLocales(t *testing.T) {
	var calls atomic.Int64
	c := newCountingCache(&calls, nil)

	if _, err := c.get(context.Background(), "k1", nil); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("fetch calls = %d, want 0", got)
	}
}

func TestPurge_ForcesRefetch(t *testing.T) {
	var calls atomic.Int64
	c := newCountingCache(&calls, nil)

	if _, err := c.get(context.Background(), "k1", []string{"en"}); err != nil {
		t.Fatalf("get: %v", err)
	}
	c.purge("k1")

	if _, err := c.get(context.Background(), "k1", []string{"en"}); err != nil {
		t.Fatalf("get after purge: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("fetch calls = %d, want 2", got)
	}
}

func TestDeleteIf(t *testing.T) {
	var calls atomic.Int64
	c := newCountingCache(&calls, nil)

	for _, k := range []string{"keep", "drop-1", "drop-2"} {
		if _, err := c.get(context.Background(), k, []string{"en"}); err != nil {
			t.Fatalf("get %s: %v", k, err)
		}
	}

	n := c.deleteIf(func(k string, _ *fakeItem) bool {
		return k != "keep"
	})
	if n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	if got := c.len(); got != 1 {
		t.Errorf("len = %d, want 1", got)
	}
	if _, ok := c.peek("keep"); !ok {
		t.Error("surviving key evicted")
	}
}
