package apiclient

import (
	"context"
	"fmt"
)

// GetSummary fetches the summary of a single sport event.
func (c *Client) GetSummary(ctx context.Context, locale, eventID string) (*SummaryResponse, error) {
	var resp SummaryResponse
	path := fmt.Sprintf("/v1/sports/%s/sport_events/%s/summary.json", locale, eventID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get summary %s [%s]: %w", eventID, locale, err)
	}
	return &resp, nil
}

// GetFixture fetches the fixture of a single sport event. When noCache
// is set the request goes through the non-cached fixture endpoint, used
// after a fixture_change message invalidated the cached copy.
func (c *Client) GetFixture(ctx context.Context, locale, eventID string, noCache bool) (*FixtureResponse, error) {
	name := "fixture.json"
	if noCache {
		name = "fixture_change_fixture.json"
	}

	var resp FixtureResponse
	path := fmt.Sprintf("/v1/sports/%s/sport_events/%s/%s", locale, eventID, name)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get fixture %s [%s]: %w", eventID, locale, err)
	}
	return &resp, nil
}

// GetCompetitorProfile fetches a single competitor profile.
func (c *Client) GetCompetitorProfile(ctx context.Context, locale, competitorID string) (*CompetitorProfileResponse, error) {
	var resp CompetitorProfileResponse
	path := fmt.Sprintf("/v1/sports/%s/competitors/%s/profile.json", locale, competitorID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get competitor profile %s [%s]: %w", competitorID, locale, err)
	}
	return &resp, nil
}

// GetScheduleForDate fetches the ids of sport events scheduled on a
// given date (YYYY-MM-DD).
func (c *Client) GetScheduleForDate(ctx context.Context, locale, date string) ([]SportEvent, error) {
	var resp struct {
		SportEvents []SportEvent `json:"sport_events"`
	}
	path := fmt.Sprintf("/v1/sports/%s/schedules/%s/schedule.json", locale, date)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get schedule %s [%s]: %w", date, locale, err)
	}
	return resp.SportEvents, nil
}

// GetTournamentSchedule fetches the sport events belonging to a
// tournament.
func (c *Client) GetTournamentSchedule(ctx context.Context, locale, tournamentID string) ([]SportEvent, error) {
	var resp struct {
		SportEvents []SportEvent `json:"sport_events"`
	}
	path := fmt.Sprintf("/v1/sports/%s/tournaments/%s/schedule.json", locale, tournamentID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get tournament schedule %s [%s]: %w", tournamentID, locale, err)
	}
	return resp.SportEvents, nil
}
