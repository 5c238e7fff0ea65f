package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aussiebroadwan/marsweb/pkg/httpx"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"

	_ "github.com/aussiebroadwan/marsweb/api/web" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig carries what the handlers need to reach the API.
type RouterConfig struct {
	APIURL       *url.URL
	APITimeout   time.Duration
	CookieSecure bool
	BuildVersion string

	// ClientOptions are appended to the options every session client is built with.
	ClientOptions []marsapi.Option
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	startTime time.Time
	logger    *slog.Logger

	// Now is the clock used for top-track windows.
	Now func() time.Time
}

func NewRouter(cfg RouterConfig, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		startTime: time.Now(),
		logger:    logger,
		Now:       time.Now,
	}

	gate := httpx.DefaultGatekeeperConfig(cfg.APIURL.String())
	gate.ClientOptions = r.clientOptions()

	// Request ids and logging first, so panics and redirects are logged too
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recoverer,
		httpx.Gatekeeper(gate),
	}

	return r
}

func (r *Router) clientOptions() []marsapi.Option {
	opts := []marsapi.Option{
		marsapi.WithTimeout(r.cfg.APITimeout),
		marsapi.WithLogger(r.logger),
	}
	return append(opts, r.cfg.ClientOptions...)
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerPages()
	r.registerProxy()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Mars Web API
//	@version		0.1.0
//	@description	Server-side page data for the mars web app. Every page is JSON; a request without a valid session is redirected to /login.
//	@description
//	@description	Sessions are the access, refresh and csrf cookies set by POST /login. An expired access token is refreshed transparently and the renewed cookies are set on the response.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/marsweb
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:3000
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	login := &LoginHandler{
		APIURL:        r.cfg.APIURL.String(),
		ClientOptions: r.clientOptions(),
	}

	r.Mux.Handle("GET /login", http.HandlerFunc(login.HandleGet))

	// POST /login - strict rate limit by IP + email to slow down guessing
	r.Mux.Handle("POST /login",
		httpx.Chain(http.HandlerFunc(login.HandlePost),
			httpx.RateLimitByIPAndFormField(httpx.LoginLimit, "email"),
		),
	)

	r.Mux.Handle("GET /logout", LogoutHandler(r.cfg.CookieSecure))
}

func (r *Router) registerPages() {
	pages := &PageHandler{Now: func() time.Time { return r.Now() }}

	// Every page costs at least one API round trip; limit by user behind the gatekeeper
	limit := httpx.RateLimitByUser(httpx.PageLimit)

	r.Mux.Handle("GET /{$}", limit(http.HandlerFunc(pages.Home)))
	r.Mux.Handle("GET /home", limit(http.HandlerFunc(pages.Home)))
	r.Mux.Handle("GET /playlist/{id}", limit(http.HandlerFunc(pages.Playlist)))
	r.Mux.Handle("POST /playlist/{id}/spotify", limit(http.HandlerFunc(pages.ExportPlaylist)))
	r.Mux.Handle("GET /integrations", limit(http.HandlerFunc(pages.Integrations)))
	r.Mux.Handle("POST /integrations/spotify/disconnect", limit(http.HandlerFunc(pages.DisconnectSpotify)))
	r.Mux.Handle("GET /top-tracks", limit(http.HandlerFunc(pages.TopTracks)))
}

func (r *Router) registerProxy() {
	r.Mux.Handle("/api/",
		httpx.Chain(NewAPIProxy(r.cfg.APIURL, r.logger),
			httpx.RateLimitByIP(httpx.ProxyLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.cfg.BuildVersion))
	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}
