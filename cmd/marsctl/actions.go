package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	webhttp "github.com/aussiebroadwan/marsweb/internal/web/http"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/urfave/cli/v3"
)

// withSession runs fn against the saved session and saves any cookies the
// API renewed, even when fn fails. Without a refresh cookie there is no
// session to resume and the API is not contacted.
func (r *Runner) withSession(fn func(s *session) error) error {
	s, err := r.open()
	if err != nil {
		return err
	}
	if !s.client.Credentials().HasRefresh() {
		return ErrNotSignedIn
	}

	err = fn(s)
	s.save()
	return s.check(err)
}

// Login signs in and saves the session.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	email := strings.TrimSpace(cmd.String("email"))
	password := cmd.String("password")
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}

	s, err := r.open()
	if err != nil {
		return err
	}

	if _, err := s.client.Login(ctx, email, password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	s.save()

	r.logger.Debug("session saved", "path", s.file.path)
	return r.writePlain("Signed in as %s\n", email)
}

// Logout forgets the saved session.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if err := (sessionFile{path: r.config.SessionFile}).Clear(); err != nil {
		return err
	}
	return r.writePlain("Signed out\n")
}

// Verify checks the session, refreshing it if needed.
func (r *Runner) Verify(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(func(s *session) error {
		user, err := s.client.VerifySession(ctx)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"valid": true, "user": user})
		}
		if user == nil {
			return r.writePlain("Session is valid\n")
		}
		return r.writePlain("Session is valid\nUser: %s\nRole: %s\n", user.ID, user.Role)
	})
}

// Playlists lists the user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(func(s *session) error {
		playlists, err := s.client.GetPlaylists(ctx)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(playlists)
		}

		tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tNAME\tCREATED")
		for _, p := range playlists {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Type, p.Name, p.CreatedAt.Format(time.DateOnly))
		}
		return tw.Flush()
	})
}

// Playlist shows one playlist with its tracks.
func (r *Runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return errors.New("playlist id is required")
	}

	return r.withSession(func(s *session) error {
		playlist, err := s.client.GetPlaylist(ctx, id)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(playlist)
		}
		if err := r.writePlain("%s (%s)\n\n", playlist.Name, playlist.Type); err != nil {
			return err
		}
		return r.writeTracks(playlist.Tracks)
	})
}

// Export copies a playlist to the user's Spotify account.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return errors.New("playlist id is required")
	}

	return r.withSession(func(s *session) error {
		if err := s.client.AddPlaylistToSpotify(ctx, id); err != nil {
			return err
		}
		return r.writePlain("Playlist %s added to Spotify\n", id)
	})
}

// TopTracks shows the most played tracks over a period.
func (r *Runner) TopTracks(ctx context.Context, cmd *cli.Command) error {
	start, end, err := webhttp.PeriodWindow(cmd.String("period"), cmd.String("start"), cmd.String("end"), time.Now())
	if err != nil {
		return err
	}

	return r.withSession(func(s *session) error {
		top, err := s.client.GetTopTracks(ctx, start, end)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(top)
		}
		if err := r.writePlain("Top tracks %s to %s\n\n", start.Format(time.DateTime), end.Format(time.DateTime)); err != nil {
			return err
		}
		return r.writeTracks(top.Tracks)
	})
}

func (r *Runner) writeTracks(tracks []marsapi.Track) error {
	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYS\tTRACK\tARTISTS")
	for i, t := range tracks {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, t.Plays, t.Name, strings.Join(t.Artists, ", "))
	}
	return tw.Flush()
}

// SpotifyStatus reports whether Spotify is linked.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(func(s *session) error {
		status, err := s.client.GetSpotifyStatus(ctx)
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(status)
		}
		if status.Connected {
			return r.writePlain("Spotify: connected\n")
		}
		return r.writePlain("Spotify: not connected\n")
	})
}

// SpotifyDisconnect unlinks Spotify.
func (r *Runner) SpotifyDisconnect(ctx context.Context, cmd *cli.Command) error {
	return r.withSession(func(s *session) error {
		if err := s.client.DisconnectSpotify(ctx); err != nil {
			return err
		}
		return r.writePlain("Spotify disconnected\n")
	})
}
