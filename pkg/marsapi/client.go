package marsapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"
)

// API paths used by the session layer.
const (
	VerifyPath  = "/api/auth/verify"
	RefreshPath = "/api/auth/refresh"
	LoginPath   = "/api/login"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 15 * time.Second

// SessionClient is an HTTP client bound to one user session. Requests made
// through Do carry the session credentials and the CSRF header, refresh the
// session at most once per 401 storm and propagate Set-Cookie headers.
type SessionClient interface {
	Do(req *http.Request) (*http.Response, error)
	Credentials() Credentials
	Coordinator() *RefreshCoordinator
	BaseURL() string
}

var _ SessionClient = (*Client)(nil)

// ============================================================================
// Options
// ============================================================================

type options struct {
	timeout   time.Duration
	retry     RetryPolicy
	transport http.RoundTripper
	logger    *slog.Logger
	hooks     []RequestHook
}

// Option configures a Client.
type Option func(*options)

// WithTimeout overrides DefaultTimeout. It also bounds shared refresh calls.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

// WithHTTPTransport sets the transport used for the network round trip.
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		if rt != nil {
			o.transport = rt
		}
	}
}

// WithLogger sets the logger handed to the retry transport.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHooks appends request hooks, run in order after the built-in ones.
func WithHooks(hooks ...RequestHook) Option {
	return func(o *options) { o.hooks = append(o.hooks, hooks...) }
}

// ============================================================================
// Client
// ============================================================================

// credentialMode is what differs between the server and ambient variants:
// how credentials are attached, where CSRF comes from and how a retry is
// rebuilt after a refresh.
type credentialMode interface {
	RequestHook
	CSRFSource
	Renewer

	current() Credentials
	store(creds Credentials)
}

// Client is the SessionClient implementation shared by both variants.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	coordinator *RefreshCoordinator
	mode        credentialMode
}

// NewServerClient returns a client for server-side use on behalf of one
// inbound request. Credentials are sent as an explicit Cookie header built
// from creds, and every Set-Cookie the API returns is written to sink so the
// browser stays in sync. After a refresh the client switches to the triple
// carried by the refresh response.
func NewServerClient(baseURL string, creds Credentials, sink CookieSink, opts ...Option) (*Client, error) {
	mode := &explicitCredentials{}
	mode.store(creds)
	return newClient(baseURL, mode, nil, sink, opts)
}

// NewAmbientClient returns a client whose cookies live in jar, the way a
// browser session works. The jar receives Set-Cookie headers automatically.
func NewAmbientClient(baseURL string, jar http.CookieJar, opts ...Option) (*Client, error) {
	if jar == nil {
		return nil, fmt.Errorf("failed to create ambient client: nil cookie jar")
	}
	return newClient(baseURL, &ambientCredentials{jar: jar}, jar, nil, opts)
}

func newClient(baseURL string, mode credentialMode, jar http.CookieJar, sink CookieSink, opts []Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("failed to create client: invalid base url %q", baseURL)
	}

	o := options{
		timeout:   DefaultTimeout,
		retry:     DefaultRetryPolicy(),
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{baseURL: u, mode: mode}
	if a, ok := mode.(*ambientCredentials); ok {
		a.base = u
	}
	c.coordinator = NewRefreshCoordinator(c.refresh, o.timeout)

	before := []RequestHook{mode, CSRFInjector{Source: mode}, RequestIDInjector{}}
	before = append(before, o.hooks...)

	// An intercepted response never reaches http.Client's jar handling, so
	// the ambient client stores its cookies itself.
	if sink == nil && jar != nil {
		sink = JarSink{Jar: jar, URL: u}
	}

	var after []ResponseHook
	if sink != nil {
		after = append(after, cookiePropagator{sink: sink})
	}
	after = append(after, &AuthInterceptor{
		Coordinator: c.coordinator,
		Renewer:     mode,
		Skip: map[string]bool{
			u.JoinPath(RefreshPath).Path: true,
			u.JoinPath(LoginPath).Path:   true,
		},
	})

	c.http = &http.Client{
		Timeout: o.timeout,
		Jar:     jar,
		Transport: &pipeline{
			before: before,
			after:  after,
			next:   newRetryTransport(o.transport, o.retry, o.logger),
		},
	}

	return c, nil
}

// Do sends req through the session pipeline. A hard authentication failure
// is returned as an error wrapping *AuthenticationError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Credentials returns the credentials the next request will carry.
func (c *Client) Credentials() Credentials { return c.mode.current() }

// Coordinator returns the refresh coordinator owned by this client.
func (c *Client) Coordinator() *RefreshCoordinator { return c.coordinator }

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// refresh is the RefreshFunc behind the coordinator.
func (c *Client) refresh(ctx context.Context) (*RefreshResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(RefreshPath), strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}
	if err := parseErrorResponse(resp, body); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	parsed, err := decodeRefreshResponse(body)
	if err != nil {
		return nil, err
	}

	creds := CredentialsFromCookies(resp.Cookies())
	c.mode.store(creds)

	return &RefreshResult{
		StatusCode:  resp.StatusCode,
		Response:    parsed,
		Credentials: creds,
	}, nil
}

// ============================================================================
// Credential modes
// ============================================================================

// explicitCredentials holds the current triple and writes it as a Cookie header.
type explicitCredentials struct {
	cur atomic.Pointer[Credentials]
}

func (m *explicitCredentials) current() Credentials {
	if p := m.cur.Load(); p != nil {
		return *p
	}
	return Credentials{}
}

func (m *explicitCredentials) store(creds Credentials) {
	m.cur.Store(&creds)
}

func (m *explicitCredentials) BeforeRequest(req *http.Request) {
	setCookieHeader(req, m.current())
}

func (m *explicitCredentials) CSRFToken(*http.Request) string {
	return m.current().CSRFToken
}

func (m *explicitCredentials) Renew(req *http.Request, creds Credentials) *http.Request {
	out := req.Clone(req.Context())
	setCookieHeader(out, creds)
	if creds.HasCSRF() {
		out.Header.Set(CSRFHeader, creds.CSRFToken)
	} else {
		out.Header.Del(CSRFHeader)
	}
	return out
}

func setCookieHeader(req *http.Request, creds Credentials) {
	if h := creds.CookieHeader(); h != "" {
		req.Header.Set("Cookie", h)
		return
	}
	req.Header.Del("Cookie")
}

// ambientCredentials leaves cookies to the http.Client jar.
type ambientCredentials struct {
	jar  http.CookieJar
	base *url.URL
}

func (m *ambientCredentials) current() Credentials {
	return CredentialsFromCookies(m.jar.Cookies(m.base))
}

// store is a no-op: the jar already holds whatever the API set.
func (m *ambientCredentials) store(Credentials) {}

func (m *ambientCredentials) BeforeRequest(*http.Request) {}

func (m *ambientCredentials) CSRFToken(req *http.Request) string {
	return jarCSRF{jar: m.jar}.CSRFToken(req)
}

func (m *ambientCredentials) Renew(req *http.Request, _ Credentials) *http.Request {
	out := req.Clone(req.Context())
	out.Header.Del("Cookie")
	for _, ck := range m.jar.Cookies(out.URL) {
		out.AddCookie(ck)
	}
	if token := m.CSRFToken(out); token != "" {
		out.Header.Set(CSRFHeader, token)
	}
	return out
}
