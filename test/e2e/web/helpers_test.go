package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"
	"time"

	"github.com/aussiebroadwan/marsweb/internal/web/app"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi/marsapitest"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/publicsuffix"
)

/*
 * End-to-end helpers: a fake mars API, the real web server on a loopback
 * listener and a cookie-keeping "browser" pointed at it.
 */

type stack struct {
	api    *marsapitest.Server
	webURL *url.URL
	jar    http.CookieJar
	// browser follows redirects and keeps cookies like a browser would.
	browser *http.Client
}

// setupStack starts the web server against a fresh fake API.
func setupStack(t *testing.T) *stack {
	t.Helper()

	api := marsapitest.NewServer(t)

	application, err := app.New(app.Config{
		APIURL:              api.URL,
		Env:                 "test",
		LogLevel:            "error",
		LogFormat:           "json",
		Port:                3000,
		ShutdownGracePeriod: time.Second,
		APITimeout:          5 * time.Second,
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	webURL, err := url.Parse("http://" + ln.Addr().String())
	require.NoError(t, err)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)

	return &stack{
		api:     api,
		webURL:  webURL,
		jar:     jar,
		browser: &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}
}

// credentials returns the session cookies the browser currently holds.
func (s *stack) credentials() marsapi.Credentials {
	return marsapi.CredentialsFromCookies(s.jar.Cookies(s.webURL))
}

// get fetches path and decodes a JSON body into out when out is non-nil.
func (s *stack) get(t *testing.T, path string, out any) *http.Response {
	t.Helper()

	resp, err := s.browser.Get(s.webURL.JoinPath(path).String())
	require.NoError(t, err)
	return readBody(t, resp, out)
}

// login submits the login form as the test user.
func (s *stack) login(t *testing.T) *http.Response {
	t.Helper()

	resp, err := s.browser.PostForm(s.webURL.JoinPath("/login").String(), url.Values{
		"email":    {marsapitest.Email},
		"password": {marsapitest.Password},
	})
	require.NoError(t, err)
	return readBody(t, resp, nil)
}

func readBody(t *testing.T, resp *http.Response, out any) *http.Response {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp
}

// ambient returns a session client that reaches the API through the web
// server's /api/ proxy using the browser's cookie jar.
func (s *stack) ambient(t *testing.T) *marsapi.Client {
	t.Helper()

	client, err := marsapi.NewAmbientClient(s.webURL.String(), s.jar,
		marsapi.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return client
}
