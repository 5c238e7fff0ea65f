package marsapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GetTopTracks returns the user's most played tracks between start and end.
// The range is sent as unix seconds.
func (c *Client) GetTopTracks(ctx context.Context, start, end time.Time) (*TopTracks, error) {
	q := url.Values{}
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))

	resp, err := c.doRequest(ctx, http.MethodGet, "/api/me/tracks/top?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}

	var out TopTracks
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
