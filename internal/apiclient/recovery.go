package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// InitiateRecovery asks the feed to replay all messages for a producer
// since the given timestamp. The request id is echoed back in the
// snapshot_complete system message once the replay finishes. A zero
// after timestamp requests a full state snapshot.
func (c *Client) InitiateRecovery(ctx context.Context, producer, requestID string, after time.Time) error {
	query := url.Values{}
	query.Set("request_id", requestID)
	if !after.IsZero() {
		query.Set("after", strconv.FormatInt(after.UnixMilli(), 10))
	}

	path := fmt.Sprintf("/v1/%s/recovery/initiate_request", producer)
	if err := c.post(ctx, path, query, nil); err != nil {
		return fmt.Errorf("initiate recovery for %s: %w", producer, err)
	}
	return nil
}
