package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/marsweb/pkg/idx"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestFromContextDefaultsToSlogDefault(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.Default(), slogx.FromContext(context.Background()))
}

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := slogx.WithRequestID(context.Background(), "abc123")
	require.Equal(t, "abc123", slogx.RequestIDFromContext(ctx))
	require.Empty(t, slogx.RequestIDFromContext(context.Background()))
}

func TestHTTPMiddlewareReusesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = slogx.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	inbound := idx.New().String()
	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set("X-Request-ID", inbound)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, inbound, seen)
	require.Equal(t, inbound, rec.Header().Get("X-Request-ID"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["msg"])
	require.Equal(t, inbound, entry["req_id"])
	require.EqualValues(t, http.StatusTeapot, entry["status"])
}

func TestHTTPMiddlewareReplacesInvalidRequestID(t *testing.T) {
	t.Parallel()

	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var seen string
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = slogx.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.Header.Set("X-Request-ID", "fixed-id\r\nX-Injected: 1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	_, err := idx.Parse(seen)
	require.NoError(t, err)
	require.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestHTTPMiddlewareGeneratesRequestID(t *testing.T) {
	t.Parallel()

	base := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var seen string
	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = slogx.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, seen, 26)
	require.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, slogx.ParseLevel(in), in)
	}
}
