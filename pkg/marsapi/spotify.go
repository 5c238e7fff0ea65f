package marsapi

import (
	"context"
	"net/http"
)

// GetSpotifyStatus reports whether a Spotify account is linked.
func (c *Client) GetSpotifyStatus(ctx context.Context) (*SpotifyStatus, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/spotify/status", nil, nil)
	if err != nil {
		return nil, err
	}

	var out SpotifyStatus
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DisconnectSpotify unlinks the user's Spotify account.
func (c *Client) DisconnectSpotify(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/spotify/disconnect", nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp)
}
