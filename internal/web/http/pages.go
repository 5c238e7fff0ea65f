package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/marsweb/pkg/httpx"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// HomePage is the body of the home page.
type HomePage struct {
	Playlists []marsapi.Playlist `json:"playlists"`
}

// PlaylistPage is the body of a playlist page.
type PlaylistPage struct {
	Playlist *marsapi.PlaylistWithTracks `json:"playlist"`
}

// IntegrationsPage is the body of the integrations page.
type IntegrationsPage struct {
	SpotifyStatus *marsapi.SpotifyStatus `json:"spotifyStatus"`
}

// PageHandler serves the data behind each signed-in page as JSON. It relies
// on the gatekeeper having put a session client in the request context.
type PageHandler struct {
	Now func() time.Time
}

// client returns the request's session client, or writes a redirect to the
// login page and returns nil.
func (h *PageHandler) client(w http.ResponseWriter, r *http.Request) *marsapi.Client {
	client, ok := httpx.ClientFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}
	return client
}

// fail maps an API error onto the page response. Authentication failures,
// including a bare 401 the session layer did not recognise, send the user
// back to the login page.
func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, page string, err error) {
	log := slogx.FromContext(r.Context()).With("page", page)

	if marsapi.IsAuthFailure(err) || marsapi.StatusCodeOf(err) == http.StatusUnauthorized {
		log.Debug("session rejected, redirecting to login", "err", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	log.Error("page load failed", "err", err)
	httpx.WriteAPIError(w, err)
}

// Home lists the user's playlists.
//
//	@Summary		Home page
//	@Description	Lists the signed-in user's playlists. Without a session the browser is redirected to /login.
//	@Tags			Pages
//	@Produce		json
//	@Success		200	{object}	HomePage			"Playlists, newest first"
//	@Success		302	"No session, redirect to /login"
//	@Failure		429	{object}	marsapi.APIError	"Rate limit exceeded"
//	@Failure		502	{object}	marsapi.APIError	"API unreachable"
//	@Router			/home [get]
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	client := h.client(w, r)
	if client == nil {
		return
	}

	playlists, err := client.GetPlaylists(r.Context())
	if err != nil {
		h.fail(w, r, "home", err)
		return
	}
	if playlists == nil {
		playlists = []marsapi.Playlist{}
	}

	httpx.WriteJSON(w, http.StatusOK, HomePage{Playlists: playlists})
}

// Playlist shows one playlist with its tracks.
//
//	@Summary		Playlist page
//	@Description	Returns one playlist with its tracks.
//	@Tags			Pages
//	@Produce		json
//	@Param			id	path		string				true	"Playlist ID"
//	@Success		200	{object}	PlaylistPage		"Playlist with tracks"
//	@Success		302	"No session, redirect to /login"
//	@Failure		404	{object}	marsapi.APIError	"Playlist not found"
//	@Failure		502	{object}	marsapi.APIError	"API unreachable"
//	@Router			/playlist/{id} [get]
func (h *PageHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	client := h.client(w, r)
	if client == nil {
		return
	}

	playlist, err := client.GetPlaylist(r.Context(), r.PathValue("id"))
	if err != nil {
		if marsapi.StatusCodeOf(err) == http.StatusNotFound {
			httpx.WriteError(w, http.StatusNotFound, httpx.CodeNotFound, "playlist not found")
			return
		}
		h.fail(w, r, "playlist", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, PlaylistPage{Playlist: playlist})
}

// ExportPlaylist copies a playlist to the user's Spotify account.
//
//	@Summary		Export playlist to Spotify
//	@Tags			Pages
//	@Produce		json
//	@Param			id				path	string	true	"Playlist ID"
//	@Success		204	"Exported"
//	@Success		302	"No session, redirect to /login"
//	@Failure		400	{object}	marsapi.APIError	"No Spotify account linked"
//	@Failure		502	{object}	marsapi.APIError	"API unreachable"
//	@Router			/playlist/{id}/spotify [post]
func (h *PageHandler) ExportPlaylist(w http.ResponseWriter, r *http.Request) {
	client := h.client(w, r)
	if client == nil {
		return
	}

	if err := client.AddPlaylistToSpotify(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, r, "playlist", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Integrations reports the state of the user's linked accounts.
//
//	@Summary		Integrations page
//	@Tags			Pages
//	@Produce		json
//	@Success		200	{object}	IntegrationsPage	"Spotify link status"
//	@Success		302	"No session, redirect to /login"
//	@Failure		502	{object}	marsapi.APIError	"API unreachable"
//	@Router			/integrations [get]
func (h *PageHandler) Integrations(w http.ResponseWriter, r *http.Request) {
	client := h.client(w, r)
	if client == nil {
		return
	}

	status, err := client.GetSpotifyStatus(r.Context())
	if err != nil {
		h.fail(w, r, "integrations", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, IntegrationsPage{SpotifyStatus: status})
}

// DisconnectSpotify unlinks Spotify and goes back to the integrations page.
//
//	@Summary		Disconnect Spotify
//	@Tags			Pages
//	@Success		303	"Disconnected, redirect to /integrations"
//	@Success		302	"No session, redirect to /login"
//	@Failure		400	{object}	marsapi.APIError	"No Spotify account linked"
//	@Failure		502	{object}	marsapi.APIError	"API unreachable"
//	@Router			/integrations/spotify/disconnect [post]
func (h *PageHandler) DisconnectSpotify(w http.ResponseWriter, r *http.Request) {
	client := h.client(w, r)
	if client == nil {
		return
	}

	if err := client.DisconnectSpotify(r.Context()); err != nil {
		h.fail(w, r, "integrations", err)
		return
	}

	http.Redirect(w, r, "/integrations", http.StatusSeeOther)
}

// ============================================================================
// Top tracks
// ============================================================================

// Top-track periods accepted in ?period=.
const (
	PeriodDay         = "day"
	PeriodWeek        = "week"
	PeriodMonthToDate = "month-to-date"
	PeriodYearToDate  = "year-to-date"
	PeriodCustom      = "custom"
)

// isoLayout matches JavaScript's Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// TopTracksPage is the body of the top tracks page. Error is set, and the
// track list empty, when the requested window was rejected.
type TopTracksPage struct {
	TopTracks *marsapi.TopTracks `json:"topTracks"`
	Period    string             `json:"period"`
	StartDate string             `json:"startDate"`
	EndDate   string             `json:"endDate"`
	Error     *string            `json:"error"`
}

var errBadCustomRange = errors.New("custom start and end must be dates (YYYY-MM-DD) or RFC 3339 timestamps")

// PeriodWindow resolves a period to a [start, end] window ending at now.
// Unknown periods, and a custom period missing either bound, fall back to
// the last 24 hours.
func PeriodWindow(period, start, end string, now time.Time) (time.Time, time.Time, error) {
	if period == PeriodCustom && start != "" && end != "" {
		s, err1 := parseDate(start)
		e, err2 := parseDate(end)
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, errBadCustomRange
		}
		return s, e, nil
	}

	switch period {
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour), now, nil
	case PeriodMonthToDate:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now, nil
	case PeriodYearToDate:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), now, nil
	default:
		return now.Add(-24 * time.Hour), now, nil
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// TopTracks shows the most played tracks for ?period= (default "day"), or
// for ?start= and ?end= when period is "custom". A range the API rejects is
// reported in the page's error field rather than as a failed request.
//
//	@Summary		Top tracks page
//	@Tags			Pages
//	@Produce		json
//	@Param			period	query		string			false	"Window"	Enums(day, week, month-to-date, year-to-date, custom)	default(day)
//	@Param			start	query		string			false	"Custom window start (YYYY-MM-DD or RFC 3339)"
//	@Param			end		query		string			false	"Custom window end (YYYY-MM-DD or RFC 3339)"
//	@Success		200		{object}	TopTracksPage	"Most played tracks, or the reason the window was rejected"
//	@Success		302		"No session, redirect to /login"
//	@Failure		404		{object}	marsapi.APIError	"No tracks listened in the window"
//	@Failure		502		{object}	marsapi.APIError	"API unreachable"
//	@Router			/top-tracks [get]
func (h *PageHandler) TopTracks(w http.ResponseWriter, r *http.Request) {
	client := h.client(w, r)
	if client == nil {
		return
	}

	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = PeriodDay
	}
	customStart, customEnd := q.Get("start"), q.Get("end")
	now := h.Now()

	rejected := func(msg string) {
		page := TopTracksPage{
			TopTracks: &marsapi.TopTracks{Tracks: []marsapi.Track{}},
			Period:    period,
			StartDate: now.UTC().Format(isoLayout),
			EndDate:   now.UTC().Format(isoLayout),
			Error:     &msg,
		}
		if customStart != "" {
			page.StartDate = customStart
		}
		if customEnd != "" {
			page.EndDate = customEnd
		}
		httpx.WriteJSON(w, http.StatusOK, page)
	}

	start, end, err := PeriodWindow(period, customStart, customEnd, now)
	if err != nil {
		rejected(err.Error())
		return
	}

	tracks, err := client.GetTopTracks(r.Context(), start, end)
	if err != nil {
		var httpErr *marsapi.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadRequest {
			msg := httpErr.Message
			if msg == "" {
				msg = "Invalid time frame selected. Please check your dates and try again."
			}
			rejected(msg)
			return
		}
		h.fail(w, r, "top-tracks", err)
		return
	}
	if tracks.Tracks == nil {
		tracks.Tracks = []marsapi.Track{}
	}

	httpx.WriteJSON(w, http.StatusOK, TopTracksPage{
		TopTracks: tracks,
		Period:    period,
		StartDate: start.UTC().Format(isoLayout),
		EndDate:   end.UTC().Format(isoLayout),
	})
}
