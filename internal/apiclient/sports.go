package apiclient

import (
	"context"
	"fmt"
)

// GetAllSports fetches the full sport list in the given locale.
func (c *Client) GetAllSports(ctx context.Context, locale string) ([]Sport, error) {
	var resp SportsResponse
	path := fmt.Sprintf("/v1/sports/%s/sports.json", locale)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get sports [%s]: %w", locale, err)
	}
	return resp.Sports, nil
}

// GetAllTournaments fetches every known tournament in the given locale.
// Each tournament carries its sport and category sub-objects.
func (c *Client) GetAllTournaments(ctx context.Context, locale string) ([]Tournament, error) {
	var resp TournamentsResponse
	path := fmt.Sprintf("/v1/sports/%s/tournaments.json", locale)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get tournaments [%s]: %w", locale, err)
	}
	return resp.Tournaments, nil
}

// GetTournamentInfo fetches a single tournament with its competitors and
// season list.
func (c *Client) GetTournamentInfo(ctx context.Context, locale, tournamentID string) (*TournamentInfoResponse, error) {
	var resp TournamentInfoResponse
	path := fmt.Sprintf("/v1/sports/%s/tournaments/%s/info.json", locale, tournamentID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get tournament info %s [%s]: %w", tournamentID, locale, err)
	}
	return &resp, nil
}
