package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/urn"
)

// stubSportsFetcher feeds canned list payloads back through the fan-out
// callbacks, counting upstream calls per locale.
type stubSportsFetcher struct {
	cache           *SportsDataCache
	sports          []apiclient.Sport
	tournaments     []apiclient.Tournament
	info            map[string]apiclient.TournamentInfoResponse
	sportCalls      map[string]int
	tournamentCalls map[string]int
	infoCalls       map[string]int
	fail            error
}

func newStubSportsFetcher() *stubSportsFetcher {
	return &stubSportsFetcher{
		info:            make(map[string]apiclient.TournamentInfoResponse),
		sportCalls:      make(map[string]int),
		tournamentCalls: make(map[string]int),
		infoCalls:       make(map[string]int),
	}
}

func (f *stubSportsFetcher) RequestAllSports(_ context.Context, locale string) error {
	f.sportCalls[locale]++
	if f.fail != nil {
		return f.fail
	}
	f.cache.OnSportsFetched(locale, f.sports)
	return nil
}

func (f *stubSportsFetcher) RequestAllTournaments(_ context.Context, locale string) error {
	f.tournamentCalls[locale]++
	if f.fail != nil {
		return f.fail
	}
	for _, t := range f.tournaments {
		f.cache.OnTournamentFetched(locale, t)
	}
	return nil
}

func (f *stubSportsFetcher) RequestTournamentInfo(_ context.Context, id urn.URN, locale string) error {
	f.infoCalls[id.String()]++
	if f.fail != nil {
		return f.fail
	}
	info, ok := f.info[id.String()]
	if !ok {
		return nil
	}
	if info.Tournament != nil {
		f.cache.OnTournamentFetched(locale, *info.Tournament)
	}
	f.cache.OnTournamentInfoFetched(locale, info)
	return nil
}

func newTestSportsCache(t *testing.T) (*SportsDataCache, *stubSportsFetcher) {
	t.Helper()

	fetcher := newStubSportsFetcher()
	cache := NewSportsDataCache(fetcher, testLogger())
	fetcher.cache = cache

	fetcher.sports = []apiclient.Sport{
		{ID: "sr:sport:1", Name: "Soccer"},
		{ID: "sr:sport:2", Name: "Basketball"},
	}
	fetcher.tournaments = []apiclient.Tournament{
		{
			ID:       "sr:tournament:17",
			Name:     "Premier League",
			Sport:    &apiclient.Sport{ID: "sr:sport:1", Name: "Soccer"},
			Category: &apiclient.Category{ID: "sr:category:1", Name: "England", CountryCode: "ENG"},
		},
		{
			ID:       "sr:tournament:23",
			Name:     "La Liga",
			Sport:    &apiclient.Sport{ID: "sr:sport:1", Name: "Soccer"},
			Category: &apiclient.Category{ID: "sr:category:32", Name: "Spain", CountryCode: "ESP"},
		},
	}
	return cache, fetcher
}

func TestSports_PrefetchesOncePerLocale(t *testing.T) {
	cache, fetcher := newTestSportsCache(t)

	sports, err := cache.Sports(context.Background(), []string{"en"})
	if err != nil {
		t.Fatalf("Sports: %v", err)
	}
	if len(sports) != 2 {
		t.Fatalf("sports = %d, want 2", len(sports))
	}

	if _, err := cache.Sports(context.Background(), []string{"en"}); err != nil {
		t.Fatalf("second Sports: %v", err)
	}
	if got := fetcher.sportCalls["en"]; got != 1 {
		t.Errorf("sport list fetches = %d, want 1", got)
	}
	if got := fetcher.tournamentCalls["en"]; got != 1 {
		t.Errorf("tournament list fetches = %d, want 1", got)
	}
}

func TestSport_MissingIDAfterPrefetch(t *testing.T) {
	cache, fetcher := newTestSportsCache(t)

	_, err := cache.Sport(context.Background(), urn.MustParse("sr:sport:999"), []string{"en"})
	if !errors.Is(err, ErrItemNotFound) {
		t.Errorf("err = %v, want ErrItemNotFound", err)
	}
	// The miss must not trigger a second list fetch.
	if got := fetcher.sportCalls["en"]; got != 1 {
		t.Errorf("sport list fetches = %d, want 1", got)
	}
}

func TestSports_FetchFailure(t *testing.T) {
	cache, fetcher := newTestSportsCache(t)
	fetcher.fail = errors.New("api down")

	if _, err := cache.Sports(context.Background(), []string{"en"}); !errors.Is(err, ErrCacheUnavailable) {
		t.Errorf("err = %v, want ErrCacheUnavailable", err)
	}

	// The locale is not recorded as prefetched; recovery retries it.
	fetcher.fail = nil
	sports, err := cache.Sports(context.Background(), []string{"en"})
	if err != nil {
		t.Fatalf("Sports after recovery: %v", err)
	}
	if len(sports) != 2 {
		t.Errorf("sports = %d, want 2", len(sports))
	}
}

func TestOnTournamentFetched_LinksCategories(t *testing.T) {
	cache, _ := newTestSportsCache(t)

	sport, err := cache.Sport(context.Background(), urn.MustParse("sr:sport:1"), []string{"en"})
	if err != nil {
		t.Fatalf("Sport: %v", err)
	}
	if len(sport.CategoryIDs) != 2 {
		t.Fatalf("category ids = %v, want 2", sport.CategoryIDs)
	}

	cats, err := cache.SportCategories(context.Background(), urn.MustParse("sr:sport:1"), []string{"en"})
	if err != nil {
		t.Fatalf("SportCategories: %v", err)
	}
	byID := make(map[string]*CategoryItem, len(cats))
	for _, c := range cats {
		byID[c.ID.String()] = c
	}

	eng, ok := byID["sr:category:1"]
	if !ok {
		t.Fatal("England category missing")
	}
	if got, want := eng.Names["en"], "England"; got != want {
		t.Errorf("category name = %q, want %q", got, want)
	}
	if got, want := eng.CountryCode, "ENG"; got != want {
		t.Errorf("country code = %q, want %q", got, want)
	}
	if got, want := eng.SportID.String(), "sr:sport:1"; got != want {
		t.Errorf("sport id = %q, want %q", got, want)
	}
	if len(eng.TournamentIDs) != 1 || eng.TournamentIDs[0].String() != "sr:tournament:17" {
		t.Errorf("tournament ids = %v, want [sr:tournament:17]", eng.TournamentIDs)
	}
}

func TestTournament_FilledByListFanOut(t *testing.T) {
	cache, fetcher := newTestSportsCache(t)

	// Prefetching the lists populates the tournament entries too.
	if _, err := cache.Sports(context.Background(), []string{"en"}); err != nil {
		t.Fatalf("Sports: %v", err)
	}

	tour, err := cache.Tournament(context.Background(), urn.MustParse("sr:tournament:17"), []string{"en"})
	if err != nil {
		t.Fatalf("Tournament: %v", err)
	}
	if got, want := tour.Names["en"], "Premier League"; got != want {
		t.Errorf("name = %q, want %q", got, want)
	}
	if got, want := tour.SportID.String(), "sr:sport:1"; got != want {
		t.Errorf("sport id = %q, want %q", got, want)
	}
	if got, want := tour.CategoryID.String(), "sr:category:1"; got != want {
		t.Errorf("category id = %q, want %q", got, want)
	}
	// The list already covered the locale, so no info fetch went out.
	if got := fetcher.infoCalls["sr:tournament:17"]; got != 0 {
		t.Errorf("info fetches = %d, want 0", got)
	}
	// Competitors are unknown until the info endpoint is fetched.
	if tour.CompetitorIDs != nil {
		t.Errorf("competitor ids = %v, want nil before info fetch", tour.CompetitorIDs)
	}
}

func TestTournament_InfoFetchFillsRelations(t *testing.T) {
	cache, fetcher := newTestSportsCache(t)
	fetcher.info["sr:tournament:17"] = apiclient.TournamentInfoResponse{
		Tournament: &apiclient.Tournament{
			ID:            "sr:tournament:17",
			Name:          "Premier League",
			Sport:         &apiclient.Sport{ID: "sr:sport:1", Name: "Soccer"},
			Category:      &apiclient.Category{ID: "sr:category:1", Name: "England"},
			CurrentSeason: &apiclient.Season{ID: "sr:season:91", Name: "2026/27"},
		},
		Competitors: []apiclient.Competitor{
			{ID: "sr:competitor:44", Name: "Arsenal"},
			{ID: "sr:competitor:35", Name: "Chelsea"},
		},
		Seasons: []apiclient.Season{
			{ID: "sr:season:77", Name: "2025/26"},
			{ID: "sr:season:91", Name: "2026/27"},
		},
	}

	// A cold read goes straight through the info endpoint.
	tour, err := cache.Tournament(context.Background(), urn.MustParse("sr:tournament:17"), []string{"en"})
	if err != nil {
		t.Fatalf("Tournament: %v", err)
	}
	if got := fetcher.infoCalls["sr:tournament:17"]; got != 1 {
		t.Fatalf("info fetches = %d, want 1", got)
	}
	if len(tour.CompetitorIDs) != 2 || tour.CompetitorIDs[0] != urn.MustParse("sr:competitor:44") {
		t.Errorf("competitor ids = %v", tour.CompetitorIDs)
	}
	if len(tour.SeasonIDs) != 2 {
		t.Errorf("season ids = %v, want 2", tour.SeasonIDs)
	}
	if got, want := tour.CurrentSeasonID, urn.MustParse("sr:season:91"); got != want {
		t.Errorf("current season = %v, want %v", got, want)
	}

	// A second read is served from the cache.
	if _, err := cache.Tournament(context.Background(), urn.MustParse("sr:tournament:17"), []string{"en"}); err != nil {
		t.Fatalf("second Tournament: %v", err)
	}
	if got := fetcher.infoCalls["sr:tournament:17"]; got != 1 {
		t.Errorf("info fetches after cached read = %d, want 1", got)
	}
}

func TestTournament_SecondLocaleAddsTranslation(t *testing.T) {
	cache, fetcher := newTestSportsCache(t)
	fetcher.info["sr:tournament:23"] = apiclient.TournamentInfoResponse{
		Tournament: &apiclient.Tournament{ID: "sr:tournament:23", Name: "La Liga"},
	}

	if _, err := cache.Tournament(context.Background(), urn.MustParse("sr:tournament:23"), []string{"en"}); err != nil {
		t.Fatalf("Tournament en: %v", err)
	}

	fetcher.info["sr:tournament:23"] = apiclient.TournamentInfoResponse{
		Tournament: &apiclient.Tournament{ID: "sr:tournament:23", Name: "Primera División"},
	}
	tour, err := cache.Tournament(context.Background(), urn.MustParse("sr:tournament:23"), []string{"en", "es"})
	if err != nil {
		t.Fatalf("Tournament en+es: %v", err)
	}
	if got, want := tour.Names["en"], "La Liga"; got != want {
		t.Errorf("en name = %q, want %q", got, want)
	}
	if got, want := tour.Names["es"], "Primera División"; got != want {
		t.Errorf("es name = %q, want %q", got, want)
	}
}

func TestSport_SecondLocaleAddsTranslation(t *testing.T) {
	cache, fetcher := newTestSportsCache(t)

	if _, err := cache.Sport(context.Background(), urn.MustParse("sr:sport:1"), []string{"en"}); err != nil {
		t.Fatalf("Sport en: %v", err)
	}

	fetcher.sports = []apiclient.Sport{{ID: "sr:sport:1", Name: "Fussball"}}
	sport, err := cache.Sport(context.Background(), urn.MustParse("sr:sport:1"), []string{"en", "de"})
	if err != nil {
		t.Fatalf("Sport en+de: %v", err)
	}
	if got, want := sport.Names["en"], "Soccer"; got != want {
		t.Errorf("en name = %q, want %q", got, want)
	}
	if got, want := sport.Names["de"], "Fussball"; got != want {
		t.Errorf("de name = %q, want %q", got, want)
	}
}
