package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/charmbracelet/log"
)

// ErrNotSignedIn is returned when the saved session is missing or can no
// longer be refreshed.
var ErrNotSignedIn = errors.New("not signed in: run `marsctl login`")

// Runner holds the dependencies shared by every command.
type Runner struct {
	config *Config
	logger *log.Logger
	output io.Writer

	// clientOptions are appended when building the API client.
	clientOptions []marsapi.Option
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config        *Config
	Logger        *log.Logger
	Output        io.Writer
	ClientOptions []marsapi.Option
}

// NewRunner fills in defaults for anything opts leaves unset.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:        opts.Config,
		logger:        opts.Logger,
		output:        opts.Output,
		clientOptions: opts.ClientOptions,
	}
}

// NewLogger creates a [log.Logger] writing to w, stderr by default.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true, Prefix: "marsctl"})
}

// session is one command's view of the saved session.
type session struct {
	client *marsapi.Client
	jar    http.CookieJar
	file   sessionFile
	api    *url.URL
	logger *log.Logger
}

// open builds an ambient client over the saved session cookies.
func (r *Runner) open() (*session, error) {
	api, err := url.Parse(strings.TrimRight(r.config.APIURL, "/"))
	if err != nil || api.Scheme == "" || api.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", r.config.APIURL)
	}

	file := sessionFile{path: r.config.SessionFile}
	jar, err := file.Jar(api)
	if err != nil {
		return nil, err
	}

	opts := []marsapi.Option{
		marsapi.WithTimeout(r.config.Timeout.Duration),
		marsapi.WithLogger(slog.New(r.logger)),
	}
	opts = append(opts, r.clientOptions...)

	client, err := marsapi.NewAmbientClient(api.String(), jar, opts...)
	if err != nil {
		return nil, err
	}

	return &session{client: client, jar: jar, file: file, api: api, logger: r.logger}, nil
}

// save persists the cookies the API set during the command, including ones
// renewed by a refresh.
func (s *session) save() {
	if s.client.Credentials().IsZero() {
		return
	}
	if err := s.file.Save(s.jar, s.api); err != nil {
		s.logger.Warn("could not save session", "err", err)
	}
}

// check turns an unrecoverable session into ErrNotSignedIn.
func (s *session) check(err error) error {
	if err == nil {
		return nil
	}
	if marsapi.IsAuthFailure(err) || marsapi.StatusCodeOf(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrNotSignedIn, err)
	}
	return err
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := fmt.Fprintf(r.output, "%s\n", output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
