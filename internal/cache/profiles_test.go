package cache

import (
	"context"
	"testing"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/urn"
)

type stubProfileFetcher struct {
	cache    *ProfileCache
	profiles map[string]map[string]apiclient.Competitor // id → locale → payload
	calls    int
}

func (f *stubProfileFetcher) RequestCompetitor(_ context.Context, id urn.URN, locale string) error {
	f.calls++
	if byLocale, ok := f.profiles[id.String()]; ok {
		if comp, ok := byLocale[locale]; ok {
			f.cache.OnCompetitorFetched(locale, comp)
		}
	}
	return nil
}

func TestCompetitor_MergesLocales(t *testing.T) {
	fetcher := &stubProfileFetcher{profiles: map[string]map[string]apiclient.Competitor{
		"sr:competitor:44": {
			"en": {ID: "sr:competitor:44", Name: "Germany", Abbreviation: "GER", Country: "Germany", CountryCode: "DEU"},
			"de": {ID: "sr:competitor:44", Name: "Deutschland", Abbreviation: "GER", Country: "Deutschland"},
		},
	}}
	cache := NewProfileCache(fetcher, testLogger())
	fetcher.cache = cache

	id := urn.MustParse("sr:competitor:44")
	comp, err := cache.Competitor(context.Background(), id, []string{"en", "de"})
	if err != nil {
		t.Fatalf("Competitor: %v", err)
	}

	if got, want := comp.Names["en"], "Germany"; got != want {
		t.Errorf("en name = %q, want %q", got, want)
	}
	if got, want := comp.Names["de"], "Deutschland"; got != want {
		t.Errorf("de name = %q, want %q", got, want)
	}
	if got, want := comp.Countries["de"], "Deutschland"; got != want {
		t.Errorf("de country = %q, want %q", got, want)
	}
	if got, want := comp.CountryCode, "DEU"; got != want {
		t.Errorf("country code = %q, want %q", got, want)
	}
	if fetcher.calls != 2 {
		t.Errorf("profile fetches = %d, want 2", fetcher.calls)
	}
}

func TestCompetitor_EmbeddedPayloadAvoidsFetch(t *testing.T) {
	fetcher := &stubProfileFetcher{profiles: map[string]map[string]apiclient.Competitor{}}
	cache := NewProfileCache(fetcher, testLogger())
	fetcher.cache = cache

	// Simulates a competitor arriving embedded in a summary fan-out.
	cache.OnCompetitorFetched("en", apiclient.Competitor{ID: "sr:competitor:9", Name: "Arsenal"})

	comp, err := cache.Competitor(context.Background(), urn.MustParse("sr:competitor:9"), []string{"en"})
	if err != nil {
		t.Fatalf("Competitor: %v", err)
	}
	if got, want := comp.Names["en"], "Arsenal"; got != want {
		t.Errorf("name = %q, want %q", got, want)
	}
	if fetcher.calls != 0 {
		t.Errorf("profile fetches = %d, want 0", fetcher.calls)
	}
}

func TestCompetitor_VirtualIsSticky(t *testing.T) {
	fetcher := &stubProfileFetcher{profiles: map[string]map[string]apiclient.Competitor{}}
	cache := NewProfileCache(fetcher, testLogger())
	fetcher.cache = cache

	cache.OnCompetitorFetched("en", apiclient.Competitor{ID: "sr:competitor:9", Name: "Sim XI", Virtual: true})
	cache.OnCompetitorFetched("de", apiclient.Competitor{ID: "sr:competitor:9", Name: "Sim XI"})

	comp, err := cache.Competitor(context.Background(), urn.MustParse("sr:competitor:9"), []string{"en", "de"})
	if err != nil {
		t.Fatalf("Competitor: %v", err)
	}
	if !comp.Virtual {
		t.Error("Virtual flag lost on merge")
	}
}
