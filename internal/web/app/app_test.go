package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/marsweb/pkg/marsapi/marsapitest"
	"github.com/stretchr/testify/require"
)

func testConfig(apiURL string) Config {
	return Config{
		APIURL:              apiURL,
		Env:                 "test",
		LogLevel:            "error",
		LogFormat:           "json",
		Port:                3000,
		ShutdownGracePeriod: time.Second,
		APITimeout:          2 * time.Second,
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig("not a url")

	_, err := New(cfg)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestServeAndShutdown(t *testing.T) {
	api := marsapitest.NewServer(t)

	application, err := New(testConfig(api.URL))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- application.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/livez")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(body, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, BuildVersion, health.Version)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
