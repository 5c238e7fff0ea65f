package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	webhttp "github.com/aussiebroadwan/marsweb/internal/web/http"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application is the web server with its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	server *http.Server
	router *webhttp.Router
}

// New validates cfg and wires the router and HTTP server.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "mars-web",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initHTTP(); err != nil {
		return nil, err
	}

	return app, nil
}

// Handler returns the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Serve(ctx, nil)
}

// Serve serves on ln, or on the configured port when ln is nil, until ctx
// is cancelled, then shuts down gracefully.
func (app *Application) Serve(ctx context.Context, ln net.Listener) error {
	app.logger.Info("web server starting",
		"port", app.cfg.Port,
		"api_url", app.cfg.APIURL,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	go func() {
		if ln != nil {
			serverErrors <- app.server.Serve(ln)
			return
		}
		serverErrors <- app.server.ListenAndServe()
	}()

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received", "cause", context.Cause(ctx))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down web server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
		return err
	}

	app.logger.Info("web server stopped")
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() error {
	apiURL, err := url.Parse(app.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("failed to parse api url: %w", err)
	}

	router := webhttp.NewRouter(webhttp.RouterConfig{
		APIURL:       apiURL,
		APITimeout:   app.cfg.APITimeout,
		CookieSecure: app.cfg.CookieSecure,
		BuildVersion: BuildVersion,
	}, app.logger)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
