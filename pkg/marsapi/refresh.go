package marsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/marsweb/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshTimeout bounds a shared refresh call independently of any
// single caller's deadline.
const DefaultRefreshTimeout = 10 * time.Second

const refreshKey = "session"

// RefreshResponse is the body of a successful refresh.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// RefreshResult is what every caller attached to one refresh call receives.
type RefreshResult struct {
	StatusCode int
	Response   RefreshResponse

	// Credentials holds the triple carried by the refresh response's
	// Set-Cookie headers. Cookies it did not set are absent.
	Credentials Credentials
}

// RefreshFunc performs one refresh call against the API.
type RefreshFunc func(ctx context.Context) (*RefreshResult, error)

// RefreshCoordinator guarantees that at most one refresh call is in flight per
// client. Callers arriving while a call is running attach to it and receive
// the same result or error. Once the call completes the slot is cleared, so a
// later 401 starts a fresh refresh.
type RefreshCoordinator struct {
	group   singleflight.Group
	refresh RefreshFunc
	timeout time.Duration

	calls  atomic.Int64
	shared atomic.Int64
}

// NewRefreshCoordinator wraps fn. A non-positive timeout selects DefaultRefreshTimeout.
func NewRefreshCoordinator(fn RefreshFunc, timeout time.Duration) *RefreshCoordinator {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	return &RefreshCoordinator{refresh: fn, timeout: timeout}
}

// Refresh starts a refresh call, or attaches to the one in flight.
//
// The shared call does not inherit the caller's cancellation: one caller
// giving up must not fail the others. A caller whose ctx ends first returns
// ctx.Err() while the call carries on for the rest.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (*RefreshResult, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		c.calls.Add(1)

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		slogx.FromContext(ctx).Debug("refreshing session")
		return c.refresh(callCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RefreshResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Calls returns how many refresh calls have been issued.
func (c *RefreshCoordinator) Calls() int64 { return c.calls.Load() }

// Shared returns how many callers received a result that was also delivered to
// another caller.
func (c *RefreshCoordinator) Shared() int64 { return c.shared.Load() }

// decodeRefreshResponse requires all three fields to be present.
func decodeRefreshResponse(body []byte) (RefreshResponse, error) {
	var raw struct {
		AccessToken *string `json:"access_token"`
		TokenType   *string `json:"token_type"`
		ExpiresIn   *int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return RefreshResponse{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if raw.AccessToken == nil || raw.TokenType == nil || raw.ExpiresIn == nil {
		return RefreshResponse{}, fmt.Errorf("failed to decode refresh response: missing required field")
	}
	return RefreshResponse{
		AccessToken: *raw.AccessToken,
		TokenType:   *raw.TokenType,
		ExpiresIn:   *raw.ExpiresIn,
	}, nil
}
