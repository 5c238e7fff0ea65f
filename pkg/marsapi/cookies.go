package marsapi

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// CookieSink receives cookies parsed from API responses.
type CookieSink interface {
	SetCookie(c *http.Cookie)
}

// ParseSetCookie parses one Set-Cookie header value. Attribute names are
// case-insensitive. Missing attributes take their defaults: Path "/",
// HttpOnly and Secure false, SameSite unset. Lines without a valid name=value
// pair are rejected.
func ParseSetCookie(line string) (*http.Cookie, bool) {
	c, err := http.ParseSetCookie(strings.TrimSpace(line))
	if err != nil || c.Name == "" {
		return nil, false
	}
	if c.Path == "" {
		c.Path = "/"
	}
	return c, true
}

// Propagate forwards every Set-Cookie header on resp to sink and returns how
// many cookies were forwarded. Malformed lines are skipped.
func Propagate(resp *http.Response, sink CookieSink) int {
	if resp == nil || sink == nil {
		return 0
	}

	n := 0
	for _, line := range resp.Header.Values("Set-Cookie") {
		c, ok := ParseSetCookie(line)
		if !ok {
			continue
		}
		sink.SetCookie(c)
		n++
	}
	return n
}

// ResponseWriterSink writes cookies onto an inbound response so the browser
// receives what the API set. It is safe for concurrent use by the API calls
// made while serving one request.
type ResponseWriterSink struct {
	mu sync.Mutex
	w  http.ResponseWriter
}

// NewResponseWriterSink returns a sink writing to w.
func NewResponseWriterSink(w http.ResponseWriter) *ResponseWriterSink {
	return &ResponseWriterSink{w: w}
}

// SetCookie implements CookieSink.
func (s *ResponseWriterSink) SetCookie(c *http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	http.SetCookie(s.w, c)
}

// JarSink stores cookies in a jar under a fixed URL.
type JarSink struct {
	Jar http.CookieJar
	URL *url.URL
}

// SetCookie implements CookieSink.
func (s JarSink) SetCookie(c *http.Cookie) {
	s.Jar.SetCookies(s.URL, []*http.Cookie{c})
}

// cookiePropagator is the response hook wrapping Propagate.
type cookiePropagator struct {
	sink CookieSink
}

func (p cookiePropagator) AfterResponse(_ *http.Request, resp *http.Response, _ SendFunc) (*http.Response, error) {
	Propagate(resp, p.sink)
	return resp, nil
}
