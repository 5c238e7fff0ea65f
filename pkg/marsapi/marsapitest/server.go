// Package marsapitest runs an in-memory mars API for tests. It issues real
// cookies and JWT access tokens, enforces CSRF on state-changing requests and
// answers with the API's structured error bodies.
package marsapitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/marsweb/pkg/idx"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Test account.
const (
	Email    = "user@example.com"
	Password = "hunter2"
)

var signingKey = []byte("marsapitest")

type tokenState int

const (
	tokenValid tokenState = iota + 1
	tokenExpired
)

// Request is a recorded inbound request.
type Request struct {
	Method    string
	Path      string
	Cookie    string
	CSRF      string
	RequestID string
	Body      string
}

// Server is a fake mars API.
type Server struct {
	*httptest.Server

	UserID uuid.UUID
	Role   string

	// RefreshDelay holds every refresh call open, so concurrent 401s pile
	// up behind one in-flight refresh.
	RefreshDelay time.Duration

	// RotateRefresh makes a refresh issue a new refresh and CSRF token.
	// Otherwise the current ones are set again next to the new access token.
	RotateRefresh bool

	// VerifyBody makes GET /api/auth/verify answer with the user as JSON
	// instead of an empty body.
	VerifyBody bool

	refreshCalls atomic.Int64

	mu        sync.Mutex
	access    map[string]tokenState
	refresh   map[string]tokenState
	overrides map[string]http.HandlerFunc
	requests  []Request
	playlists []marsapi.PlaylistWithTracks
	connected bool
}

// NewServer starts a fake API. It is closed when the test ends.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		UserID:    uuid.New(),
		Role:      "user",
		access:    make(map[string]tokenState),
		refresh:   make(map[string]tokenState),
		overrides: make(map[string]http.HandlerFunc),
		connected: true,
		playlists: defaultPlaylists(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/auth/verify", s.protected(s.handleVerify))
	mux.HandleFunc("GET /api/playlists", s.protected(s.handlePlaylists))
	mux.HandleFunc("GET /api/playlists/{id}", s.protected(s.handlePlaylist))
	mux.HandleFunc("POST /api/playlists/{id}/spotify", s.protected(s.handleExport))
	mux.HandleFunc("GET /api/me/tracks/top", s.protected(s.handleTopTracks))
	mux.HandleFunc("GET /api/spotify/status", s.protected(s.handleSpotifyStatus))
	mux.HandleFunc("POST /api/spotify/disconnect", s.protected(s.handleSpotifyDisconnect))

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			Cookie:    r.Header.Get("Cookie"),
			CSRF:      r.Header.Get(marsapi.CSRFHeader),
			RequestID: r.Header.Get(marsapi.RequestIDHeader),
			Body:      string(body),
		})
		override := s.overrides[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if override != nil {
			override(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)

	return s
}

// ============================================================================
// Session management
// ============================================================================

// NewSession issues a valid credential triple.
func (s *Server) NewSession() marsapi.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

func (s *Server) issueLocked() marsapi.Credentials {
	access := s.signAccess()
	refresh := idx.New().String()
	s.access[access] = tokenValid
	s.refresh[refresh] = tokenValid
	return marsapi.Credentials{
		AccessToken:  access,
		RefreshToken: refresh,
		CSRFToken:    idx.New().String(),
	}
}

func (s *Server) signAccess() string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  s.UserID.String(),
		"role": s.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
		// jti keeps tokens minted in the same second distinct
		"jti": idx.New().String(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return signed
}

// ExpireAccess makes token answer expired_access_token.
func (s *Server) ExpireAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[token] = tokenExpired
}

// ExpireRefresh makes token answer expired_refresh_token.
func (s *Server) ExpireRefresh(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token] = tokenExpired
}

// AccessValid reports whether token is currently accepted.
func (s *Server) AccessValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access[token] == tokenValid
}

// SetSpotifyConnected sets the linked state reported by /api/spotify/status.
func (s *Server) SetSpotifyConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
}

// Override replaces the handler for "METHOD /path".
func (s *Server) Override(pattern string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[pattern] = h
}

// RefreshCalls returns how many refresh requests reached the server.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// Requests returns the recorded requests for path, or all of them when path is "".
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Request
	for _, r := range s.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ============================================================================
// Responses
// ============================================================================

var errorID atomic.Uint64

// WriteError writes a structured API error.
func WriteError(w http.ResponseWriter, status int, code marsapi.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(marsapi.APIError{
		Code:    code.String(),
		ErrorID: errorID.Add(1),
		Message: message,
		Status:  status,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) setSessionCookies(w http.ResponseWriter, creds marsapi.Credentials) {
	if creds.HasAccess() {
		http.SetCookie(w, &http.Cookie{
			Name: marsapi.AccessTokenCookie, Value: creds.AccessToken, Path: "/",
			MaxAge: 900, HttpOnly: true, SameSite: http.SameSiteLaxMode,
		})
	}
	if creds.HasRefresh() {
		http.SetCookie(w, &http.Cookie{
			Name: marsapi.RefreshTokenCookie, Value: creds.RefreshToken, Path: "/",
			MaxAge: 7 * 24 * 3600, HttpOnly: true, SameSite: http.SameSiteLaxMode,
		})
	}
	if creds.HasCSRF() {
		http.SetCookie(w, &http.Cookie{
			Name: marsapi.CSRFTokenCookie, Value: creds.CSRFToken, Path: "/",
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req marsapi.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, marsapi.ErrorCodeBadRequest, "invalid body")
		return
	}
	if req.Email != Email || req.Password != Password {
		WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidCredentials, "invalid email or password")
		return
	}

	creds := s.NewSession()
	s.setSessionCookies(w, creds)
	writeJSON(w, http.StatusOK, marsapi.LoginResponse{
		AccessToken: creds.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   900,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if s.RefreshDelay > 0 {
		time.Sleep(s.RefreshDelay)
	}

	if !s.csrfOK(r) {
		WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidCredentials, "csrf token mismatch")
		return
	}

	cookie, err := r.Cookie(marsapi.RefreshTokenCookie)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidRefreshToken, "missing refresh token")
		return
	}

	s.mu.Lock()
	state := s.refresh[cookie.Value]
	next := marsapi.ExtractCredentials(r)
	if state == tokenValid {
		next.AccessToken = s.signAccess()
		s.access[next.AccessToken] = tokenValid
		if s.RotateRefresh {
			next.RefreshToken = idx.New().String()
			next.CSRFToken = idx.New().String()
			s.refresh[next.RefreshToken] = tokenValid
			delete(s.refresh, cookie.Value)
		}
	}
	s.mu.Unlock()

	switch state {
	case tokenExpired:
		WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeExpiredRefreshToken, "refresh token expired")
		return
	case tokenValid:
	default:
		WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidRefreshToken, "unknown refresh token")
		return
	}

	s.setSessionCookies(w, next)
	writeJSON(w, http.StatusOK, marsapi.RefreshResponse{
		AccessToken: next.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   900,
	})
}

func (s *Server) csrfOK(r *http.Request) bool {
	cookie, err := r.Cookie(marsapi.CSRFTokenCookie)
	return err == nil && cookie.Value != "" && r.Header.Get(marsapi.CSRFHeader) == cookie.Value
}

// protected enforces the access token, and CSRF on state-changing methods.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.csrfOK(r) {
			WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidCredentials, "csrf token mismatch")
			return
		}

		cookie, err := r.Cookie(marsapi.AccessTokenCookie)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidAccessToken, "missing access token")
			return
		}

		s.mu.Lock()
		state := s.access[cookie.Value]
		s.mu.Unlock()

		switch state {
		case tokenValid:
			next(w, r)
		case tokenExpired:
			WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeExpiredAccessToken, "access token expired")
		default:
			WriteError(w, http.StatusUnauthorized, marsapi.ErrorCodeInvalidAccessToken, "invalid access token")
		}
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !s.VerifyBody {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, marsapi.User{ID: s.UserID.String(), Email: Email, Role: s.Role})
}

func (s *Server) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := marsapi.Playlists{Playlists: make([]marsapi.Playlist, 0, len(s.playlists))}
	for _, p := range s.playlists {
		out.Playlists = append(out.Playlists, p.Playlist)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) findPlaylist(id string) (marsapi.PlaylistWithTracks, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.playlists {
		if p.ID == id {
			return p, true
		}
	}
	return marsapi.PlaylistWithTracks{}, false
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	p, ok := s.findPlaylist(r.PathValue("id"))
	if !ok {
		WriteError(w, http.StatusNotFound, marsapi.ErrorCodeNotFound, "playlist not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.findPlaylist(r.PathValue("id")); !ok {
		WriteError(w, http.StatusNotFound, marsapi.ErrorCodeNotFound, "playlist not found")
		return
	}

	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	if !connected {
		WriteError(w, http.StatusBadRequest, marsapi.ErrorCodeNoSpotifyIntegration, "spotify is not connected")
		return
	}
	writeJSON(w, http.StatusCreated, marsapi.SpotifyPlaylist{
		ID:  "sp-" + r.PathValue("id"),
		URL: "https://open.spotify.com/playlist/sp-" + r.PathValue("id"),
	})
}

func (s *Server) handleTopTracks(w http.ResponseWriter, r *http.Request) {
	start, err1 := strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
	end, err2 := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if err1 != nil || err2 != nil || end < start {
		WriteError(w, http.StatusBadRequest, marsapi.ErrorCodeBadRequest, "invalid range")
		return
	}

	s.mu.Lock()
	var tracks []marsapi.Track
	if len(s.playlists) > 0 {
		tracks = append(tracks, s.playlists[0].Tracks...)
	}
	s.mu.Unlock()

	if len(tracks) == 0 {
		WriteError(w, http.StatusNotFound, marsapi.ErrorCodeNoTracksListened, "no tracks listened")
		return
	}
	writeJSON(w, http.StatusOK, marsapi.TopTracks{Tracks: tracks})
}

func (s *Server) handleSpotifyStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, marsapi.SpotifyStatus{Connected: connected})
}

func (s *Server) handleSpotifyDisconnect(w http.ResponseWriter, r *http.Request) {
	s.SetSpotifyConnected(false)
	w.WriteHeader(http.StatusNoContent)
}

func defaultPlaylists() []marsapi.PlaylistWithTracks {
	tracks := []marsapi.Track{
		{ID: "track-1", Name: "Blinding Lights", Artists: []string{"The Weeknd"}, Href: "https://open.spotify.com/track/0VjIjW4GlUZAMYd2vXMi3b", Plays: 42},
		{ID: "track-2", Name: "Levitating", Artists: []string{"Dua Lipa", "DaBaby"}, Href: "https://open.spotify.com/track/5nujrmhLynf4yMoMtj8AQF", Plays: 17},
	}
	return []marsapi.PlaylistWithTracks{
		{
			Playlist: marsapi.Playlist{ID: "1", Type: marsapi.PlaylistWeekly, Name: "Week of Jan 20, 2026", CreatedAt: time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)},
			Tracks:   tracks,
		},
		{
			Playlist: marsapi.Playlist{ID: "3", Type: marsapi.PlaylistMonthly, Name: "December 2025", CreatedAt: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
			Tracks:   tracks[:1],
		},
	}
}
