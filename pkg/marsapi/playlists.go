package marsapi

import (
	"context"
	"net/http"
	"net/url"
)

// GetPlaylists lists the user's generated playlists.
func (c *Client) GetPlaylists(ctx context.Context) ([]Playlist, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/playlists", nil, nil)
	if err != nil {
		return nil, err
	}

	var out Playlists
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return out.Playlists, nil
}

// GetPlaylist returns one playlist with its tracks. A missing playlist is an
// *HTTPError with status 404.
func (c *Client) GetPlaylist(ctx context.Context, id string) (*PlaylistWithTracks, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/playlists/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var out PlaylistWithTracks
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddPlaylistToSpotify exports a playlist to the user's Spotify account.
func (c *Client) AddPlaylistToSpotify(ctx context.Context, id string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/playlists/"+url.PathEscape(id)+"/spotify", nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp)
}
