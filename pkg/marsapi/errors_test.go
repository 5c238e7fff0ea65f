package marsapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	require.Equal(t, ClassRecoverable, Classify("invalid_access_token"))
	require.Equal(t, ClassRecoverable, Classify("expired_access_token"))
	require.Equal(t, ClassUnrecoverable, Classify("invalid_refresh_token"))
	require.Equal(t, ClassUnrecoverable, Classify("expired_refresh_token"))

	for _, code := range []string{"invalid_credentials", "not_found", "insufficient_permissions", "", "EXPIRED_ACCESS_TOKEN"} {
		require.Equal(t, ClassOther, Classify(code), code)
	}

	require.True(t, IsRecoverableAuthError("expired_access_token"))
	require.False(t, IsRecoverableAuthError("expired_refresh_token"))
	require.True(t, IsUnrecoverableAuthError("invalid_refresh_token"))
	require.Equal(t, "unrecoverable", ClassUnrecoverable.String())
}

func TestParseAPIError(t *testing.T) {
	t.Parallel()

	t.Run("valid body", func(t *testing.T) {
		apiErr, err := ParseAPIError([]byte(`{"code":"expired_access_token","error_id":18446744073709551615,"message":"expired","status":401}`))
		require.NoError(t, err)
		require.Equal(t, "expired_access_token", apiErr.Code)
		require.Equal(t, uint64(18446744073709551615), apiErr.ErrorID)
		require.Equal(t, "expired", apiErr.Message)
		require.Equal(t, 401, apiErr.Status)
	})

	malformed := map[string]string{
		"not json":        `unauthorized`,
		"empty":           ``,
		"missing code":    `{"error_id":1,"message":"m","status":401}`,
		"missing status":  `{"code":"c","error_id":1,"message":"m"}`,
		"null message":    `{"code":"c","error_id":1,"message":null,"status":401}`,
		"numeric code":    `{"code":5,"error_id":1,"message":"m","status":401}`,
		"negative id":     `{"code":"c","error_id":-1,"message":"m","status":401}`,
		"fractional stat": `{"code":"c","error_id":1,"message":"m","status":401.5}`,
		"array":           `[]`,
	}
	for name, body := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAPIError([]byte(body))
			require.ErrorIs(t, err, ErrMalformedError)
		})
	}
}

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()

	resp := func(status int) *http.Response { return &http.Response{StatusCode: status} }

	require.NoError(t, parseErrorResponse(resp(http.StatusOK), nil))
	require.NoError(t, parseErrorResponse(resp(http.StatusNoContent), []byte("junk")))

	t.Run("auth code on 401", func(t *testing.T) {
		err := parseErrorResponse(resp(http.StatusUnauthorized),
			[]byte(`{"code":"expired_refresh_token","error_id":7,"message":"gone","status":401}`))

		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, "expired_refresh_token", authErr.Code)
		require.True(t, authErr.Redirect)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, uint64(7), apiErr.ErrorID)
	})

	t.Run("other code on 401", func(t *testing.T) {
		err := parseErrorResponse(resp(http.StatusUnauthorized),
			[]byte(`{"code":"invalid_credentials","error_id":3,"message":"nope","status":401}`))
		require.False(t, IsAuthFailure(err))

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, "invalid_credentials", httpErr.Code)
		require.Equal(t, uint64(3), httpErr.RequestID)
		require.Equal(t, http.StatusUnauthorized, StatusCodeOf(err))
	})

	t.Run("malformed body keeps the text", func(t *testing.T) {
		err := parseErrorResponse(resp(http.StatusBadGateway), []byte("  upstream down \n"))

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, string(ErrorCodeUnknown), httpErr.Code)
		require.Equal(t, "upstream down", httpErr.Message)
	})
}

func TestIsAuthFailureThroughWrapping(t *testing.T) {
	t.Parallel()

	base := &AuthenticationError{Code: "expired_refresh_token", Redirect: true}
	wrapped := fmt.Errorf("failed to send request: %w", base)

	require.True(t, IsAuthFailure(wrapped))
	require.False(t, IsAuthFailure(errors.New("boom")))
	require.Zero(t, StatusCodeOf(wrapped))
}
