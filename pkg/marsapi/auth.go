package marsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// VerifySession asks the API whether the session is valid, refreshing it once
// if the access token has expired.
//
// On success it returns the caller's identity: the verify body when the API
// sends one, otherwise the claims of the current access token. The user is
// nil when neither is available. A session that cannot be recovered yields
// an error wrapping *AuthenticationError.
func (c *Client) VerifySession(ctx context.Context) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, VerifyPath, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if err := parseErrorResponse(resp, body); err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) > 0 {
		var user User
		if err := json.Unmarshal(body, &user); err == nil && user.ID != "" {
			return &user, nil
		}
	}

	user, err := IdentityFromAccessToken(c.Credentials().AccessToken)
	if err != nil {
		slogx.FromContext(ctx).Debug("no identity in verified session", "err", err)
		return nil, nil
	}
	return user, nil
}

// RefreshSession refreshes the session explicitly, sharing any refresh that
// is already in flight.
func (c *Client) RefreshSession(ctx context.Context) (*RefreshResult, error) {
	return c.coordinator.Refresh(ctx)
}

// Login exchanges an email and password for a session. The session cookies
// are set by the API; a server client also adopts them as its credentials.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, LoginPath, LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	creds := CredentialsFromCookies(resp.Cookies())

	var out LoginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}

	if !creds.IsZero() {
		c.mode.store(creds)
	}
	return &out, nil
}
