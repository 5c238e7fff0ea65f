package httpx

import (
	"net/http"
	"slices"
	"strings"

	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// GatekeeperConfig configures the Gatekeeper middleware.
type GatekeeperConfig struct {
	// APIURL is the base URL of the mars API.
	APIURL string

	// LoginPath is where unauthenticated users are sent. Defaults to "/login".
	LoginPath string

	// PublicPaths are matched exactly and bypass the gatekeeper.
	PublicPaths []string

	// PublicPrefixes bypass the gatekeeper for every path they prefix.
	PublicPrefixes []string

	// ClientOptions are passed to every per-request session client.
	ClientOptions []marsapi.Option
}

// DefaultGatekeeperConfig returns the public routes of the web server.
func DefaultGatekeeperConfig(apiURL string) GatekeeperConfig {
	return GatekeeperConfig{
		APIURL:         apiURL,
		LoginPath:      "/login",
		PublicPaths:    []string{"/login", "/logout", "/livez"},
		PublicPrefixes: []string{"/api/", "/swagger/"},
	}
}

// IsPublic reports whether path bypasses the gatekeeper.
func (c GatekeeperConfig) IsPublic(path string) bool {
	if slices.Contains(c.PublicPaths, path) {
		return true
	}
	for _, p := range c.PublicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Gatekeeper verifies the session of every non-public request before it
// reaches a handler.
//
// Requests without a refresh or CSRF cookie are redirected to the login page
// without contacting the API. Otherwise a server session client is built for
// the request, with the ResponseWriter as its cookie sink, and the session is
// verified (refreshing it if the access token expired). On success the user
// and the client are stored in the request context. A hard authentication
// failure redirects to the login page; any other failure is relayed as a JSON
// error.
func Gatekeeper(cfg GatekeeperConfig) Middleware {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := slogx.FromContext(ctx)

			creds := marsapi.ExtractCredentials(r)
			if !creds.HasRefresh() || !creds.HasCSRF() {
				log.Debug("missing session cookies, redirecting to login")
				http.Redirect(w, r, cfg.LoginPath, http.StatusFound)
				return
			}

			client, err := marsapi.NewServerClient(cfg.APIURL, creds, marsapi.NewResponseWriterSink(w), cfg.ClientOptions...)
			if err != nil {
				log.Error("failed to create session client", "err", err)
				WriteError(w, http.StatusInternalServerError, CodeInternalServerError, "internal server error")
				return
			}

			user, err := client.VerifySession(ctx)
			if err != nil {
				if marsapi.IsAuthFailure(err) {
					log.Info("session rejected, redirecting to login", "err", err)
					http.Redirect(w, r, cfg.LoginPath, http.StatusFound)
					return
				}
				log.Warn("session verification failed", "err", err)
				WriteAPIError(w, err)
				return
			}

			if user != nil {
				log = log.With("user_id", user.ID)
				ctx = slogx.WithContext(ctx, log)
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, user, client)))
		})
	}
}
