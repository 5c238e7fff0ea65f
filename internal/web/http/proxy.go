package http

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/aussiebroadwan/marsweb/pkg/httpx"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// NewAPIProxy forwards /api/ requests from the browser to the API unchanged.
// Cookies and the CSRF header travel with the browser's own request, and the
// API's Set-Cookie headers reach the browser directly, so no session client
// is involved. The inbound request id is forwarded for log correlation.
func NewAPIProxy(target *url.URL, logger *slog.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if id := slogx.RequestIDFromContext(pr.In.Context()); id != "" {
				pr.Out.Header.Set(marsapi.RequestIDHeader, id)
			}
		},
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slogx.FromContext(r.Context()).Warn("api proxy failed", "err", err)
			httpx.WriteError(w, http.StatusBadGateway, httpx.CodeUpstreamUnavailable, "the api could not be reached")
		},
	}
}
