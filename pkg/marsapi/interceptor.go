package marsapi

import (
	"bytes"
	"io"
	"net/http"

	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// Renewer rewrites a request so that it carries freshly refreshed credentials.
type Renewer interface {
	Renew(req *http.Request, creds Credentials) *http.Request
}

// AuthInterceptor is the response hook that turns an expired access token into
// a single transparent retry.
//
// For a 401 whose body is a well formed API error:
//   - a recoverable code triggers one coordinated refresh, then the original
//     request is re-sent exactly once with the new credentials;
//   - an unrecoverable code fails the request with an AuthenticationError;
//   - any other code is passed through untouched.
//
// Malformed 401 bodies, non-401 responses and requests to a path in Skip are
// passed through. The retry goes through send, so it is never intercepted again.
type AuthInterceptor struct {
	Coordinator *RefreshCoordinator
	Renewer     Renewer

	// Skip holds exact URL paths that are never intercepted, such as the
	// refresh and login endpoints.
	Skip map[string]bool
}

// AfterResponse implements ResponseHook.
func (i *AuthInterceptor) AfterResponse(req *http.Request, resp *http.Response, send SendFunc) (*http.Response, error) {
	if resp.StatusCode != http.StatusUnauthorized || i.Skip[req.URL.Path] {
		return resp, nil
	}

	log := slogx.FromContext(req.Context())

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		log.Debug("unreadable 401 body, passing through", "err", err)
		return resp, nil
	}

	apiErr, err := ParseAPIError(body)
	if err != nil {
		log.Debug("malformed 401 body, passing through", "err", err)
		return resp, nil
	}

	switch Classify(apiErr.Code) {
	case ClassOther:
		return resp, nil
	case ClassUnrecoverable:
		log.Info("session cannot be refreshed", "code", apiErr.Code)
		return nil, &AuthenticationError{
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Redirect: true,
			Err:      apiErr,
		}
	}

	result, err := i.Coordinator.Refresh(req.Context())
	if err != nil {
		// The caller gave up; that is not an authentication failure.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warn("session refresh failed", "err", err)
		return nil, &AuthenticationError{
			Code:     apiErr.Code,
			Message:  "session refresh failed",
			Redirect: true,
			Err:      err,
		}
	}

	return send(i.Renewer.Renew(req, result.Credentials))
}
