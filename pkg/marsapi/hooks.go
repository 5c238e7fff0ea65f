package marsapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// RequestHook runs immediately before a request is handed to the transport.
// Hooks receive a private clone of the caller's request and may edit its headers.
type RequestHook interface {
	BeforeRequest(req *http.Request)
}

// RequestHookFunc adapts an ordinary function to a RequestHook.
type RequestHookFunc func(req *http.Request)

// BeforeRequest calls f(req).
func (f RequestHookFunc) BeforeRequest(req *http.Request) { f(req) }

// SendFunc sends a request through the request hooks and the transport. The
// response passes through the response hooks that ran before the caller, but
// not through the caller or the hooks after it.
type SendFunc func(req *http.Request) (*http.Response, error)

// ResponseHook inspects a response after it is received. It may return the
// response unchanged, replace it (by re-sending through send), or fail the
// request with an error.
type ResponseHook interface {
	AfterResponse(req *http.Request, resp *http.Response, send SendFunc) (*http.Response, error)
}

// pipeline is an http.RoundTripper running an ordered list of request hooks,
// the transport, then an ordered list of response hooks.
type pipeline struct {
	before []RequestHook
	after  []ResponseHook
	next   http.RoundTripper
}

func (p *pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	req, err := rewindable(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.send(req)
	if err != nil {
		return nil, err
	}

	for i, h := range p.after {
		resp, err = h.AfterResponse(req, resp, p.resend(p.after[:i]))
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// resend returns the SendFunc handed to a response hook. A response it
// produces replaces the one the earlier hooks saw, so it runs through
// those hooks as well.
func (p *pipeline) resend(earlier []ResponseHook) SendFunc {
	return func(req *http.Request) (*http.Response, error) {
		resp, err := p.send(req)
		if err != nil {
			return nil, err
		}
		for _, h := range earlier {
			resp, err = h.AfterResponse(req, resp, p.send)
			if err != nil {
				return nil, err
			}
		}
		return resp, nil
	}
}

// send clones req with a fresh body, applies the request hooks and calls the transport.
func (p *pipeline) send(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body: %w", err)
		}
		out.Body = body
	}

	for _, h := range p.before {
		h.BeforeRequest(out)
	}

	return p.next.RoundTrip(out)
}

// rewindable guarantees req can be sent more than once. Bodies without
// GetBody are buffered in memory; the caller's body is always closed.
func rewindable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}

	if req.GetBody != nil {
		_ = req.Body.Close()
		return req, nil
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}

	out := req.Clone(req.Context())
	out.ContentLength = int64(len(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.Body, _ = out.GetBody()
	return out, nil
}

// RequestIDInjector forwards the inbound request id, when the context carries
// one, so API logs can be correlated with the web server's.
type RequestIDInjector struct{}

// BeforeRequest sets X-Request-ID unless the request already has one.
func (RequestIDInjector) BeforeRequest(req *http.Request) {
	if req.Header.Get(RequestIDHeader) != "" {
		return
	}
	if id := slogx.RequestIDFromContext(req.Context()); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}
}
