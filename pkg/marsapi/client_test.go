package marsapi_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi/marsapitest"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/publicsuffix"
)

func fastRetry() marsapi.RetryPolicy {
	p := marsapi.DefaultRetryPolicy()
	p.WaitMin = time.Millisecond
	p.WaitMax = 5 * time.Millisecond
	return p
}

func newServerClient(t *testing.T, api *marsapitest.Server, creds marsapi.Credentials) (*marsapi.Client, *httptest.ResponseRecorder) {
	t.Helper()

	rec := httptest.NewRecorder()
	client, err := marsapi.NewServerClient(api.URL, creds, marsapi.NewResponseWriterSink(rec),
		marsapi.WithRetryPolicy(fastRetry()),
		marsapi.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return client, rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := marsapi.NewServerClient("not a url", marsapi.Credentials{}, nil)
	require.Error(t, err)

	_, err = marsapi.NewAmbientClient("http://localhost:8080", nil)
	require.Error(t, err)

	client, err := marsapi.NewServerClient("http://localhost:8080/", marsapi.Credentials{}, nil)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", client.BaseURL())
}

func TestConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	api.RefreshDelay = 100 * time.Millisecond

	creds := api.NewSession()
	api.ExpireAccess(creds.AccessToken)

	// Hold every expired request until all of them have arrived, so their
	// 401s land inside the same refresh window.
	const n = 10
	var arrived atomic.Int64
	gate := make(chan struct{})
	var once sync.Once
	api.Override("GET /api/playlists", func(w http.ResponseWriter, r *http.Request) {
		access, _ := r.Cookie(marsapi.AccessTokenCookie)
		switch {
		case access != nil && access.Value == creds.AccessToken:
			if arrived.Add(1) == n {
				once.Do(func() { close(gate) })
			}
			select {
			case <-gate:
			case <-time.After(2 * time.Second):
			}
			marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeExpiredAccessToken, "expired")
		case access != nil && api.AccessValid(access.Value):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"playlists":[]}`))
		default:
			marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidAccessToken, "invalid")
		}
	})

	client, rec := newServerClient(t, api, creds)

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.GetPlaylists(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(1), api.RefreshCalls())
	require.Equal(t, int64(1), client.Coordinator().Calls())

	fresh := client.Credentials()
	require.NotEqual(t, creds.AccessToken, fresh.AccessToken)
	require.Equal(t, creds.RefreshToken, fresh.RefreshToken)

	reqs := api.Requests("/api/playlists")
	require.Len(t, reqs, 2*n)
	retried := 0
	for _, r := range reqs {
		if strings.Contains(r.Cookie, "access="+fresh.AccessToken) {
			retried++
		}
	}
	require.Equal(t, n, retried, "every request is retried exactly once with the new token")

	access := findCookie(rec, marsapi.AccessTokenCookie)
	require.NotNil(t, access, "refresh cookies reach the inbound response")
	require.Equal(t, fresh.AccessToken, access.Value)
	require.True(t, access.HttpOnly)
	require.Equal(t, "/", access.Path)
	require.Equal(t, http.SameSiteLaxMode, access.SameSite)
}

func TestRetryUsesRotatedCredentials(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	api.RotateRefresh = true

	creds := api.NewSession()
	api.ExpireAccess(creds.AccessToken)

	client, _ := newServerClient(t, api, creds)
	require.NoError(t, client.AddPlaylistToSpotify(context.Background(), "1"))

	fresh := client.Credentials()
	require.NotEqual(t, creds.AccessToken, fresh.AccessToken)
	require.NotEqual(t, creds.RefreshToken, fresh.RefreshToken)
	require.NotEqual(t, creds.CSRFToken, fresh.CSRFToken)

	reqs := api.Requests("/api/playlists/1/spotify")
	require.Len(t, reqs, 2)
	require.Equal(t, creds.CookieHeader(), reqs[0].Cookie)
	require.Equal(t, fresh.CookieHeader(), reqs[1].Cookie)
	require.Equal(t, fresh.CSRFToken, reqs[1].CSRF)

	refresh := api.Requests(marsapi.RefreshPath)
	require.Len(t, refresh, 1)
	require.Equal(t, "{}", refresh[0].Body)
	require.Equal(t, creds.CSRFToken, refresh[0].CSRF)
}

func TestUnrecoverableCodeSkipsRefresh(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	api.Override("GET /api/spotify/status", func(w http.ResponseWriter, r *http.Request) {
		marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeExpiredRefreshToken, "session over")
	})

	client, _ := newServerClient(t, api, api.NewSession())
	_, err := client.GetSpotifyStatus(context.Background())

	var authErr *marsapi.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, "expired_refresh_token", authErr.Code)
	require.True(t, authErr.Redirect)
	require.Zero(t, api.RefreshCalls())
}

func TestFailedRefreshIsAuthFailure(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	creds := api.NewSession()
	api.ExpireAccess(creds.AccessToken)
	api.ExpireRefresh(creds.RefreshToken)

	client, _ := newServerClient(t, api, creds)
	_, err := client.GetPlaylists(context.Background())

	require.True(t, marsapi.IsAuthFailure(err))
	require.Equal(t, int64(1), api.RefreshCalls())
	require.Len(t, api.Requests("/api/playlists"), 1, "no retry after a failed refresh")

	// The next 401 starts a new refresh rather than reusing the failed one.
	_, err = client.GetPlaylists(context.Background())
	require.True(t, marsapi.IsAuthFailure(err))
	require.Equal(t, int64(2), api.RefreshCalls())
}

func TestOtherAndMalformed401PassThrough(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	api.Override("GET /api/spotify/status", func(w http.ResponseWriter, r *http.Request) {
		marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidCredentials, "csrf mismatch")
	})
	api.Override("GET /api/playlists", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("Unauthorized"))
	})

	client, _ := newServerClient(t, api, api.NewSession())

	_, err := client.GetSpotifyStatus(context.Background())
	require.False(t, marsapi.IsAuthFailure(err))
	var httpErr *marsapi.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	require.Equal(t, "invalid_credentials", httpErr.Code)

	_, err = client.GetPlaylists(context.Background())
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, string(marsapi.ErrorCodeUnknown), httpErr.Code)
	require.Equal(t, "Unauthorized", httpErr.Message)

	require.Zero(t, api.RefreshCalls())
}

func TestLoginAndRefreshEndpointsAreNotIntercepted(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	api.Override("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeExpiredAccessToken, "odd but possible")
	})

	client, _ := newServerClient(t, api, api.NewSession())
	_, err := client.Login(context.Background(), marsapitest.Email, marsapitest.Password)
	require.Error(t, err)
	require.Zero(t, api.RefreshCalls())

	// A refresh answered with a recoverable code must not refresh again.
	api.Override("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidAccessToken, "loop bait")
	})
	_, err = client.RefreshSession(context.Background())
	require.Error(t, err)
	require.Len(t, api.Requests(marsapi.RefreshPath), 1)
}

func TestRetryTransport(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)

	var statusHits atomic.Int64
	api.Override("GET /api/spotify/status", func(w http.ResponseWriter, r *http.Request) {
		if statusHits.Add(1) <= 2 {
			marsapitest.WriteError(w, http.StatusServiceUnavailable, marsapi.ErrorCodeInternalServerError, "warming up")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"connected":true}`))
	})

	var disconnectHits atomic.Int64
	api.Override("POST /api/spotify/disconnect", func(w http.ResponseWriter, r *http.Request) {
		disconnectHits.Add(1)
		marsapitest.WriteError(w, http.StatusServiceUnavailable, marsapi.ErrorCodeInternalServerError, "down")
	})

	var playlistHits atomic.Int64
	api.Override("GET /api/playlists", func(w http.ResponseWriter, r *http.Request) {
		playlistHits.Add(1)
		marsapitest.WriteError(w, http.StatusBadGateway, marsapi.ErrorCodeInternalServerError, "bad gateway")
	})

	client, _ := newServerClient(t, api, api.NewSession())

	t.Run("transient failures are retried", func(t *testing.T) {
		status, err := client.GetSpotifyStatus(context.Background())
		require.NoError(t, err)
		require.True(t, status.Connected)
		require.Equal(t, int64(3), statusHits.Load())
	})

	t.Run("non-idempotent methods are not retried", func(t *testing.T) {
		err := client.DisconnectSpotify(context.Background())
		require.Equal(t, http.StatusServiceUnavailable, marsapi.StatusCodeOf(err))
		require.Equal(t, int64(1), disconnectHits.Load())
	})

	t.Run("last response surfaces once attempts run out", func(t *testing.T) {
		_, err := client.GetPlaylists(context.Background())
		require.Equal(t, http.StatusBadGateway, marsapi.StatusCodeOf(err))
		require.Equal(t, int64(fastRetry().Limit+1), playlistHits.Load())
	})
}

func TestAmbientClientSession(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	client, err := marsapi.NewAmbientClient(api.URL, jar, marsapi.WithRetryPolicy(fastRetry()))
	require.NoError(t, err)

	ctx := context.Background()

	// Public call before login: no CSRF header, no failure.
	_, err = client.Login(ctx, marsapitest.Email, "wrong")
	require.Equal(t, http.StatusUnauthorized, marsapi.StatusCodeOf(err))
	require.Empty(t, api.Requests(marsapi.LoginPath)[0].CSRF)

	login, err := client.Login(ctx, marsapitest.Email, marsapitest.Password)
	require.NoError(t, err)
	require.Equal(t, "bearer", login.TokenType)

	creds := client.Credentials()
	require.Equal(t, login.AccessToken, creds.AccessToken)
	require.True(t, creds.HasRefresh())
	require.True(t, creds.HasCSRF())

	api.ExpireAccess(creds.AccessToken)

	status, err := client.GetSpotifyStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.Connected)
	require.Equal(t, int64(1), api.RefreshCalls())
	require.NotEqual(t, creds.AccessToken, client.Credentials().AccessToken)

	// State-changing call: CSRF comes from the jar.
	require.NoError(t, client.DisconnectSpotify(ctx))
	reqs := api.Requests("/api/spotify/disconnect")
	require.Len(t, reqs, 1)
	require.Equal(t, creds.CSRFToken, reqs[0].CSRF)
}

func TestVerifySessionIdentity(t *testing.T) {
	t.Parallel()

	t.Run("from access token claims", func(t *testing.T) {
		api := marsapitest.NewServer(t)
		api.Role = "admin"
		client, _ := newServerClient(t, api, api.NewSession())

		user, err := client.VerifySession(context.Background())
		require.NoError(t, err)
		require.NotNil(t, user)
		require.Equal(t, api.UserID.String(), user.ID)
		require.True(t, user.IsAdmin())
	})

	t.Run("from verify body", func(t *testing.T) {
		api := marsapitest.NewServer(t)
		api.VerifyBody = true
		client, _ := newServerClient(t, api, api.NewSession())

		user, err := client.VerifySession(context.Background())
		require.NoError(t, err)
		require.Equal(t, marsapitest.Email, user.Email)
	})

	t.Run("after refresh", func(t *testing.T) {
		api := marsapitest.NewServer(t)
		creds := api.NewSession()
		creds.AccessToken = ""
		client, rec := newServerClient(t, api, creds)

		user, err := client.VerifySession(context.Background())
		require.NoError(t, err)
		require.Equal(t, api.UserID.String(), user.ID)
		require.Equal(t, int64(1), api.RefreshCalls())
		require.NotNil(t, findCookie(rec, marsapi.AccessTokenCookie))
	})
}

func TestRequestIDIsForwarded(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	client, _ := newServerClient(t, api, api.NewSession())

	ctx := slogx.WithRequestID(context.Background(), "req-42")
	_, err := client.GetPlaylists(ctx)
	require.NoError(t, err)

	reqs := api.Requests("/api/playlists")
	require.Len(t, reqs, 1)
	require.Equal(t, "req-42", reqs[0].RequestID)
}

func TestTypedEndpoints(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	client, _ := newServerClient(t, api, api.NewSession())
	ctx := context.Background()

	playlists, err := client.GetPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	require.Equal(t, marsapi.PlaylistWeekly, playlists[0].Type)

	playlist, err := client.GetPlaylist(ctx, "1")
	require.NoError(t, err)
	require.Equal(t, "Week of Jan 20, 2026", playlist.Name)
	require.Len(t, playlist.Tracks, 2)

	_, err = client.GetPlaylist(ctx, "missing")
	var httpErr *marsapi.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	require.Equal(t, string(marsapi.ErrorCodeNotFound), httpErr.Code)

	end := time.Now()
	top, err := client.GetTopTracks(ctx, end.Add(-7*24*time.Hour), end)
	require.NoError(t, err)
	require.Equal(t, 42, top.Tracks[0].Plays)

	status, err := client.GetSpotifyStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.Connected)

	require.NoError(t, client.DisconnectSpotify(ctx))
	err = client.AddPlaylistToSpotify(ctx, "1")
	require.Equal(t, http.StatusBadRequest, marsapi.StatusCodeOf(err))
}

// expiredThenOK answers 401 expired_access_token to the stale token and
// calls ok for any valid one.
func expiredThenOK(api *marsapitest.Server, stale string, onStale, ok http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, _ := r.Cookie(marsapi.AccessTokenCookie)
		switch {
		case access != nil && access.Value == stale:
			if onStale != nil {
				onStale(w, r)
			}
			marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeExpiredAccessToken, "expired")
		case access != nil && api.AccessValid(access.Value):
			ok(w, r)
		default:
			marsapitest.WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidAccessToken, "invalid")
		}
	}
}

func TestRetriedResponseCookiesArePropagated(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	creds := api.NewSession()
	api.ExpireAccess(creds.AccessToken)

	api.Override("GET /api/playlists", expiredThenOK(api, creds.AccessToken, nil,
		func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "pref", Value: "dark", Path: "/"})
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"playlists":[]}`))
		}))

	client, rec := newServerClient(t, api, creds)

	_, err := client.GetPlaylists(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), api.RefreshCalls())

	pref := findCookie(rec, "pref")
	require.NotNil(t, pref, "cookies on the retried response reach the inbound response")
	require.Equal(t, "dark", pref.Value)
	require.NotNil(t, findCookie(rec, marsapi.AccessTokenCookie))
}

func newAmbientClient(t *testing.T, api *marsapitest.Server) (*marsapi.Client, http.CookieJar) {
	t.Helper()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	client, err := marsapi.NewAmbientClient(api.URL, jar,
		marsapi.WithRetryPolicy(fastRetry()),
		marsapi.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return client, jar
}

func jarCookie(t *testing.T, jar http.CookieJar, rawURL, name string) *http.Cookie {
	t.Helper()

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	for _, c := range jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAmbientInterceptedResponseCookiesReachJar(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	client, jar := newAmbientClient(t, api)

	_, err := client.Login(context.Background(), marsapitest.Email, marsapitest.Password)
	require.NoError(t, err)
	creds := client.Credentials()
	api.ExpireAccess(creds.AccessToken)

	api.Override("GET /api/playlists", expiredThenOK(api, creds.AccessToken,
		func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: "seen", Value: "1", Path: "/"})
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"playlists":[]}`))
		}))

	_, err = client.GetPlaylists(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), api.RefreshCalls())

	seen := jarCookie(t, jar, api.URL, "seen")
	require.NotNil(t, seen, "cookies on the 401 that was retried reach the jar")
	require.Equal(t, "1", seen.Value)
}

func TestAmbientConcurrentExpiredRequestsShareOneRefresh(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	api.RefreshDelay = 100 * time.Millisecond
	client, _ := newAmbientClient(t, api)

	_, err := client.Login(context.Background(), marsapitest.Email, marsapitest.Password)
	require.NoError(t, err)
	creds := client.Credentials()
	api.ExpireAccess(creds.AccessToken)

	const n = 10
	var arrived atomic.Int64
	gate := make(chan struct{})
	var once sync.Once
	api.Override("GET /api/playlists", expiredThenOK(api, creds.AccessToken,
		func(w http.ResponseWriter, r *http.Request) {
			if arrived.Add(1) == n {
				once.Do(func() { close(gate) })
			}
			select {
			case <-gate:
			case <-time.After(2 * time.Second):
			}
		},
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"playlists":[]}`))
		}))

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = client.GetPlaylists(context.Background())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(n), arrived.Load())
	require.Equal(t, int64(1), api.RefreshCalls())
	require.Equal(t, int64(1), client.Coordinator().Calls())
	require.True(t, api.AccessValid(client.Credentials().AccessToken))
}

func TestTruncatedErrorBodyIsReadError(t *testing.T) {
	t.Parallel()

	api := marsapitest.NewServer(t)
	api.Override("POST /api/spotify/disconnect", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"internal_`))
	})

	client, _ := newServerClient(t, api, api.NewSession())

	err := client.DisconnectSpotify(context.Background())
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var httpErr *marsapi.HTTPError
	require.False(t, errors.As(err, &httpErr), "a partial body is not decoded as an API error")
}
