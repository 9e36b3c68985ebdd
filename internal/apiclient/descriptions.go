package apiclient

import (
	"context"
	"fmt"
	"net/url"
)

// GetMarketDescriptions fetches all invariant market descriptions in the
// given locale.
func (c *Client) GetMarketDescriptions(ctx context.Context, locale string) ([]MarketDescription, error) {
	var resp MarketDescriptionsResponse
	path := fmt.Sprintf("/v1/descriptions/%s/markets.json", locale)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get market descriptions [%s]: %w", locale, err)
	}
	return resp.Markets, nil
}

// GetVariantDescriptions fetches all pre-defined variant descriptions in
// the given locale.
func (c *Client) GetVariantDescriptions(ctx context.Context, locale string) ([]VariantDescription, error) {
	var resp VariantDescriptionsResponse
	path := fmt.Sprintf("/v1/descriptions/%s/variants.json", locale)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("get variant descriptions [%s]: %w", locale, err)
	}
	return resp.Variants, nil
}

// GetMarketVariantDescription fetches the description of a single market
// resolved against a dynamic variant value.
func (c *Client) GetMarketVariantDescription(ctx context.Context, locale string, marketID int, variant string) (*MarketDescription, error) {
	query := url.Values{}
	query.Set("variant", variant)

	var resp MarketDescriptionsResponse
	path := fmt.Sprintf("/v1/descriptions/%s/markets/%d/variants.json", locale, marketID)
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, fmt.Errorf("get market %d variant %q [%s]: %w", marketID, variant, locale, err)
	}
	if len(resp.Markets) == 0 {
		return nil, &APIError{StatusCode: 404, Message: "variant description not found"}
	}
	return &resp.Markets[0], nil
}
