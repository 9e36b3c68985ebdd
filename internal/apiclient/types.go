package apiclient

import "time"

// Sport is the sport sub-object carried by most endpoints.
type Sport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Category is the category sub-object carried by tournament payloads.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"country_code,omitempty"`
}

// Season describes one season of a tournament.
type Season struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Year      string `json:"year,omitempty"`
}

// Tournament represents a tournament with its owning sport and category.
type Tournament struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Sport         *Sport    `json:"sport,omitempty"`
	Category      *Category `json:"category,omitempty"`
	CurrentSeason *Season   `json:"current_season,omitempty"`
	ScheduledAt   time.Time `json:"scheduled,omitzero"`
}

// Competitor is a team or player taking part in a sport event.
type Competitor struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Country      string `json:"country,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	Virtual      bool   `json:"virtual,omitempty"`
}

// SportEvent is the fixture/summary sub-object for a single event.
type SportEvent struct {
	ID          string       `json:"id"`
	Scheduled   time.Time    `json:"scheduled,omitzero"`
	Status      string       `json:"status,omitempty"`
	Tournament  *Tournament  `json:"tournament,omitempty"`
	Competitors []Competitor `json:"competitors,omitempty"`
}

// SportsResponse from GET /v1/sports/{locale}/sports.json
type SportsResponse struct {
	Sports []Sport `json:"sports"`
}

// TournamentsResponse from GET /v1/sports/{locale}/tournaments.json
type TournamentsResponse struct {
	Tournaments []Tournament `json:"tournaments"`
}

// TournamentInfoResponse from GET /v1/sports/{locale}/tournaments/{id}/info.json
type TournamentInfoResponse struct {
	Tournament  *Tournament  `json:"tournament"`
	Competitors []Competitor `json:"competitors,omitempty"`
	Seasons     []Season     `json:"seasons,omitempty"`
}

// SummaryResponse from GET /v1/sports/{locale}/sport_events/{id}/summary.json
type SummaryResponse struct {
	SportEvent *SportEvent  `json:"sport_event"`
	Status     *EventStatus `json:"sport_event_status,omitempty"`
}

// FixtureResponse from GET /v1/sports/{locale}/sport_events/{id}/fixture.json
type FixtureResponse struct {
	SportEvent         *SportEvent `json:"sport_event"`
	StartTimeConfirmed bool        `json:"start_time_confirmed,omitempty"`
	LiveOddsAvailable  bool        `json:"live_odds_available,omitempty"`
}

// CompetitorProfileResponse from GET /v1/sports/{locale}/competitors/{id}/profile.json
type CompetitorProfileResponse struct {
	Competitor *Competitor `json:"competitor"`
}

// EventStatus is the current status block of one sport event. Scores are
// pointers so an absent field is distinguishable from zero.
type EventStatus struct {
	Status        string `json:"status,omitempty"`
	MatchStatus   string `json:"match_status,omitempty"`
	HomeScore     *int   `json:"home_score,omitempty"`
	AwayScore     *int   `json:"away_score,omitempty"`
	WinnerID      string `json:"winner_id,omitempty"`
	BetStopped    *bool  `json:"bet_stopped,omitempty"`
	MatchClock    string `json:"match_clock,omitempty"`
	RemainingTime string `json:"remaining_time,omitempty"`
}

// OutcomeDescription is one translated outcome of a market description.
type OutcomeDescription struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpecifierDescription declares one specifier a market expects.
type SpecifierDescription struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MarketDescription describes one market type (id, translated name,
// outcomes, expected specifiers).
type MarketDescription struct {
	ID         int                    `json:"id"`
	Name       string                 `json:"name"`
	Groups     string                 `json:"groups,omitempty"`
	Variant    string                 `json:"variant,omitempty"`
	Outcomes   []OutcomeDescription   `json:"outcomes,omitempty"`
	Specifiers []SpecifierDescription `json:"specifiers,omitempty"`
}

// VariantDescription describes one dynamic-outcome variant.
type VariantDescription struct {
	ID       string               `json:"id"`
	Outcomes []OutcomeDescription `json:"outcomes,omitempty"`
}

// MarketDescriptionsResponse from GET /v1/descriptions/{locale}/markets.json
type MarketDescriptionsResponse struct {
	Markets []MarketDescription `json:"markets"`
}

// VariantDescriptionsResponse from GET /v1/descriptions/{locale}/variants.json
type VariantDescriptionsResponse struct {
	Variants []VariantDescription `json:"variant_descriptions"`
}
