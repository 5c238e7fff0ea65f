package main

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Version is overridden at build time via -ldflags "-X".
var Version = "v0.1.0"

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "marsctl",
		Usage:   "Browse your mars playlists and listening history",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   filepath.Join(configDir(), "config.toml"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the mars API (overrides the config file)",
				Sources: cli.EnvVars("MARS_API_URL"),
			},
			&cli.StringFlag{
				Name:  "session-file",
				Usage: "Where the session cookies are kept (overrides the config file)",
			},
			// -v belongs to --version.
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log requests and session refreshes",
			},
		},
		Before:   r.configure,
		Commands: r.register(),
	}
}

// configure loads the config file and applies flag overrides.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	if cmd.IsSet("api-url") {
		cfg.APIURL = cmd.String("api-url")
	}
	if cmd.IsSet("session-file") {
		cfg.SessionFile = cmd.String("session-file")
	}
	if cmd.Bool("verbose") {
		r.logger.SetLevel(log.DebugLevel)
	}

	r.config = cfg
	return ctx, nil
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output raw JSON",
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		loginCommand, logoutCommand, verifyCommand,
		playlistsCommand, playlistCommand, exportCommand,
		topTracksCommand, spotifyCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and save the session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Account email",
				Sources:  cli.EnvVars("MARS_EMAIL"),
				Required: true,
			},
			&cli.StringFlag{
				Name:     "password",
				Aliases:  []string{"p"},
				Usage:    "Account password",
				Sources:  cli.EnvVars("MARS_PASSWORD"),
				Required: true,
			},
		},
		Action: r.Login,
	}
}

func logoutCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Forget the saved session",
		Action: r.Logout,
	}
}

func verifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "verify",
		Usage:  "Check the saved session, refreshing it if needed",
		Flags:  []cli.Flag{jsonFlag()},
		Action: r.Verify,
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List generated playlists",
		Flags:   []cli.Flag{jsonFlag()},
		Action:  r.Playlists,
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "playlist",
		Usage:     "Show a playlist and its tracks",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags:     []cli.Flag{jsonFlag()},
		Action:    r.Playlist,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Add a playlist to Spotify",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action:    r.Export,
	}
}

func topTracksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top-tracks",
		Usage: "Show the most played tracks",
		Flags: []cli.Flag{
			jsonFlag(),
			&cli.StringFlag{
				Name:  "period",
				Usage: "day, week, month-to-date, year-to-date or custom",
				Value: "day",
			},
			&cli.StringFlag{
				Name:  "start",
				Usage: "Start of a custom period (YYYY-MM-DD or RFC 3339)",
			},
			&cli.StringFlag{
				Name:  "end",
				Usage: "End of a custom period (YYYY-MM-DD or RFC 3339)",
			},
		},
		Action: r.TopTracks,
	}
}

func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "spotify",
		Usage: "Manage the Spotify integration",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show whether Spotify is linked",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.SpotifyStatus,
			},
			{
				Name:   "disconnect",
				Usage:  "Unlink Spotify",
				Action: r.SpotifyDisconnect,
			},
		},
	}
}
