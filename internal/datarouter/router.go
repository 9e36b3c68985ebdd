package datarouter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oddsfeed/sdk/internal/apiclient"
	"github.com/oddsfeed/sdk/internal/urn"
)

// SportListener receives sport, category and tournament bearing
// payloads. Tournament sub-objects arrive through OnTournamentFetched;
// the full info endpoint, which adds competitors and seasons, through
// OnTournamentInfoFetched.
type SportListener interface {
	OnSportsFetched(locale string, sports []apiclient.Sport)
	OnTournamentFetched(locale string, t apiclient.Tournament)
	OnTournamentInfoFetched(locale string, info apiclient.TournamentInfoResponse)
}

// EventListener receives sport-event payloads.
type EventListener interface {
	OnEventFetched(locale string, ev apiclient.SportEvent)
	OnFixtureFetched(locale string, fx apiclient.FixtureResponse)
}

// ProfileListener receives competitor payloads.
type ProfileListener interface {
	OnCompetitorFetched(locale string, comp apiclient.Competitor)
}

// StatusListener receives sport-event status payloads.
type StatusListener interface {
	OnStatusFetched(eventID urn.URN, st apiclient.EventStatus)
}

// MarketListener receives market description payloads.
type MarketListener interface {
	OnMarketDescriptionsFetched(locale string, markets []apiclient.MarketDescription)
}

// VariantListener receives variant description payloads.
type VariantListener interface {
	OnVariantDescriptionsFetched(locale string, variants []apiclient.VariantDescription)
}

// FixtureMarkSource reports whether the next fixture fetch for an event
// must bypass the cached endpoint. Implemented by the sport-event
// cache.
type FixtureMarkSource interface {
	TakeFixtureMark(id urn.URN) bool
}

// Instruments receives fetch telemetry. Satisfied by the metrics
// package; a nil sink disables instrumentation.
type Instruments interface {
	ObserveFetch(endpoint string, err error)
}

// Router fetches reference data through the API client and fans fetched
// payloads out to the registered cache listeners. Identical concurrent
// fetches are collapsed into one outbound request.
type Router struct {
	client *apiclient.Client
	logger *slog.Logger
	group  singleflight.Group

	sportListeners   []SportListener
	eventListeners   []EventListener
	profileListeners []ProfileListener
	statusListeners  []StatusListener
	marketListeners  []MarketListener
	variantListeners []VariantListener

	fixtureMarks FixtureMarkSource
	instruments  Instruments
}

// New creates a Router on top of the API client.
func New(client *apiclient.Client, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		client: client,
		logger: logger,
	}
}

// Listener registration. Not safe for concurrent use; register
// everything during wiring, before the first fetch.

func (r *Router) AddSportListener(l SportListener)     { r.sportListeners = append(r.sportListeners, l) }
func (r *Router) AddEventListener(l EventListener)     { r.eventListeners = append(r.eventListeners, l) }
func (r *Router) AddProfileListener(l ProfileListener) { r.profileListeners = append(r.profileListeners, l) }
func (r *Router) AddStatusListener(l StatusListener)   { r.statusListeners = append(r.statusListeners, l) }
func (r *Router) AddMarketListener(l MarketListener)   { r.marketListeners = append(r.marketListeners, l) }
func (r *Router) AddVariantListener(l VariantListener) { r.variantListeners = append(r.variantListeners, l) }

// SetFixtureMarkSource wires the fixture-change mark lookup consulted
// by RequestFixture.
func (r *Router) SetFixtureMarkSource(src FixtureMarkSource) {
	r.fixtureMarks = src
}

// SetInstruments wires the telemetry sink.
func (r *Router) SetInstruments(in Instruments) {
	r.instruments = in
}

func (r *Router) observeFetch(endpoint string, err error) {
	if r.instruments != nil {
		r.instruments.ObserveFetch(endpoint, err)
	}
}

// RequestAllSports fetches the sport list for one locale and fans it
// out.
func (r *Router) RequestAllSports(ctx context.Context, locale string) error {
	_, err, _ := r.group.Do("sports:"+locale, func() (any, error) {
		sports, err := r.client.GetAllSports(ctx, locale)
		if err != nil {
			return nil, err
		}
		for _, l := range r.sportListeners {
			l.OnSportsFetched(locale, sports)
		}
		return nil, nil
	})
	r.observeFetch("sports", err)
	return err
}

// RequestAllTournaments fetches every tournament for one locale and
// fans each one out with its sport and category sub-objects.
func (r *Router) RequestAllTournaments(ctx context.Context, locale string) error {
	_, err, _ := r.group.Do("tournaments:"+locale, func() (any, error) {
		tournaments, err := r.client.GetAllTournaments(ctx, locale)
		if err != nil {
			return nil, err
		}
		for _, t := range tournaments {
			r.fanOutTournament(locale, t)
		}
		return nil, nil
	})
	r.observeFetch("tournaments", err)
	return err
}

// RequestTournamentInfo fetches one tournament with competitors and
// seasons.
func (r *Router) RequestTournamentInfo(ctx context.Context, tournamentID urn.URN, locale string) error {
	key := fmt.Sprintf("tournament-info:%s:%s", tournamentID, locale)
	_, err, _ := r.group.Do(key, func() (any, error) {
		info, err := r.client.GetTournamentInfo(ctx, locale, tournamentID.String())
		if err != nil {
			return nil, err
		}
		if info.Tournament != nil {
			r.fanOutTournament(locale, *info.Tournament)
		}
		r.fanOutCompetitors(locale, info.Competitors)
		for _, l := range r.sportListeners {
			l.OnTournamentInfoFetched(locale, *info)
		}
		return nil, nil
	})
	r.observeFetch("tournament_info", err)
	return err
}

// RequestSummary fetches one sport-event summary and fans out every
// sub-object it carries.
func (r *Router) RequestSummary(ctx context.Context, eventID urn.URN, locale string) error {
	key := fmt.Sprintf("summary:%s:%s", eventID, locale)
	_, err, _ := r.group.Do(key, func() (any, error) {
		summary, err := r.client.GetSummary(ctx, locale, eventID.String())
		if err != nil {
			return nil, err
		}
		if summary.SportEvent != nil {
			r.fanOutEvent(locale, *summary.SportEvent)
		}
		if summary.Status != nil {
			for _, l := range r.statusListeners {
				l.OnStatusFetched(eventID, *summary.Status)
			}
		}
		return nil, nil
	})
	r.observeFetch("summary", err)
	return err
}

// RequestFixture fetches one fixture. When a fixture-change mark is
// pending for the event the request bypasses the cached endpoint; a
// failure of the non-cached endpoint is logged and the cached one is
// used instead, so a flaky auxiliary endpoint never blocks fixture
// population.
func (r *Router) RequestFixture(ctx context.Context, eventID urn.URN, locale string) error {
	noCache := r.fixtureMarks != nil && r.fixtureMarks.TakeFixtureMark(eventID)

	key := fmt.Sprintf("fixture:%s:%s", eventID, locale)
	_, err, _ := r.group.Do(key, func() (any, error) {
		fx, err := r.client.GetFixture(ctx, locale, eventID.String(), noCache)
		if err != nil && noCache {
			r.logger.Warn("non-cached fixture fetch failed, falling back",
				"event_id", eventID,
				"locale", locale,
				"error", err,
			)
			fx, err = r.client.GetFixture(ctx, locale, eventID.String(), false)
		}
		if err != nil {
			return nil, err
		}

		for _, l := range r.eventListeners {
			l.OnFixtureFetched(locale, *fx)
		}
		if fx.SportEvent != nil {
			r.fanOutEventSubObjects(locale, *fx.SportEvent)
		}
		return nil, nil
	})
	r.observeFetch("fixture", err)
	return err
}

// RequestCompetitor fetches one competitor profile.
func (r *Router) RequestCompetitor(ctx context.Context, competitorID urn.URN, locale string) error {
	key := fmt.Sprintf("competitor:%s:%s", competitorID, locale)
	_, err, _ := r.group.Do(key, func() (any, error) {
		profile, err := r.client.GetCompetitorProfile(ctx, locale, competitorID.String())
		if err != nil {
			return nil, err
		}
		if profile.Competitor != nil {
			r.fanOutCompetitors(locale, []apiclient.Competitor{*profile.Competitor})
		}
		return nil, nil
	})
	r.observeFetch("competitor_profile", err)
	return err
}

// RequestTournamentSchedule fetches the events of one tournament,
// fanning each out, and returns their ids.
func (r *Router) RequestTournamentSchedule(ctx context.Context, tournamentID urn.URN, locale string) ([]urn.URN, error) {
	key := fmt.Sprintf("tournament-schedule:%s:%s", tournamentID, locale)
	ids, err, _ := r.group.Do(key, func() (any, error) {
		events, err := r.client.GetTournamentSchedule(ctx, locale, tournamentID.String())
		if err != nil {
			return nil, err
		}
		return r.fanOutSchedule(locale, events), nil
	})
	r.observeFetch("tournament_schedule", err)
	if err != nil {
		return nil, err
	}
	return ids.([]urn.URN), nil
}

// RequestDateSchedule fetches the events scheduled on one date, fanning
// each out, and returns their ids.
func (r *Router) RequestDateSchedule(ctx context.Context, date time.Time, locale string) ([]urn.URN, error) {
	day := date.Format("2006-01-02")
	key := fmt.Sprintf("date-schedule:%s:%s", day, locale)
	ids, err, _ := r.group.Do(key, func() (any, error) {
		events, err := r.client.GetScheduleForDate(ctx, locale, day)
		if err != nil {
			return nil, err
		}
		return r.fanOutSchedule(locale, events), nil
	})
	r.observeFetch("date_schedule", err)
	if err != nil {
		return nil, err
	}
	return ids.([]urn.URN), nil
}

// RequestMarketDescriptions fetches the market description list for one
// locale.
func (r *Router) RequestMarketDescriptions(ctx context.Context, locale string) error {
	_, err, _ := r.group.Do("market-descriptions:"+locale, func() (any, error) {
		markets, err := r.client.GetMarketDescriptions(ctx, locale)
		if err != nil {
			return nil, err
		}
		for _, l := range r.marketListeners {
			l.OnMarketDescriptionsFetched(locale, markets)
		}
		return nil, nil
	})
	r.observeFetch("market_descriptions", err)
	return err
}

// RequestVariantDescriptions fetches the variant description list for
// one locale.
func (r *Router) RequestVariantDescriptions(ctx context.Context, locale string) error {
	_, err, _ := r.group.Do("variant-descriptions:"+locale, func() (any, error) {
		variants, err := r.client.GetVariantDescriptions(ctx, locale)
		if err != nil {
			return nil, err
		}
		for _, l := range r.variantListeners {
			l.OnVariantDescriptionsFetched(locale, variants)
		}
		return nil, nil
	})
	r.observeFetch("variant_descriptions", err)
	return err
}

// RequestMarketVariant fetches one market description resolved against
// a dynamic variant value.
func (r *Router) RequestMarketVariant(ctx context.Context, marketID int, variant, locale string) error {
	key := fmt.Sprintf("market-variant:%d:%s:%s", marketID, variant, locale)
	_, err, _ := r.group.Do(key, func() (any, error) {
		m, err := r.client.GetMarketVariantDescription(ctx, locale, marketID, variant)
		if err != nil {
			return nil, err
		}
		for _, l := range r.marketListeners {
			l.OnMarketDescriptionsFetched(locale, []apiclient.MarketDescription{*m})
		}
		return nil, nil
	})
	r.observeFetch("market_variant", err)
	return err
}

// fanOutTournament delivers a tournament payload to the sport listeners
// and its competitors, if any, to the profile listeners.
func (r *Router) fanOutTournament(locale string, t apiclient.Tournament) {
	for _, l := range r.sportListeners {
		l.OnTournamentFetched(locale, t)
	}
}

// fanOutEvent delivers an event payload and all its sub-objects.
func (r *Router) fanOutEvent(locale string, ev apiclient.SportEvent) {
	for _, l := range r.eventListeners {
		l.OnEventFetched(locale, ev)
	}
	r.fanOutEventSubObjects(locale, ev)
}

// fanOutEventSubObjects delivers the tournament and competitor
// sub-objects of an event payload.
func (r *Router) fanOutEventSubObjects(locale string, ev apiclient.SportEvent) {
	if ev.Tournament != nil {
		r.fanOutTournament(locale, *ev.Tournament)
	}
	r.fanOutCompetitors(locale, ev.Competitors)
}

func (r *Router) fanOutCompetitors(locale string, comps []apiclient.Competitor) {
	for _, comp := range comps {
		for _, l := range r.profileListeners {
			l.OnCompetitorFetched(locale, comp)
		}
	}
}

// fanOutSchedule delivers each scheduled event and collects their ids.
func (r *Router) fanOutSchedule(locale string, events []apiclient.SportEvent) []urn.URN {
	ids := make([]urn.URN, 0, len(events))
	for _, ev := range events {
		id, err := urn.Parse(ev.ID)
		if err != nil {
			r.logger.Warn("skipping scheduled event with malformed id", "id", ev.ID, "error", err)
			continue
		}
		r.fanOutEvent(locale, ev)
		ids = append(ids, id)
	}
	return ids
}
