package marsapi

import "time"

// ============================================================================
// Users
// ============================================================================

// User is the identity of the signed-in user.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == "admin" }

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login. The tokens themselves are
// also set as cookies.
type LoginResponse = RefreshResponse

// ============================================================================
// Playlists and tracks
// ============================================================================

// PlaylistType is how a playlist was generated.
type PlaylistType string

const (
	PlaylistWeekly  PlaylistType = "weekly"
	PlaylistMonthly PlaylistType = "monthly"
	PlaylistCustom  PlaylistType = "custom"
)

// Playlist is a generated playlist without its tracks.
type Playlist struct {
	ID        string       `json:"id"`
	Type      PlaylistType `json:"type"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
}

// Playlists is the body of GET /api/playlists.
type Playlists struct {
	Playlists []Playlist `json:"playlists"`
}

// Track is a listened track with its play count.
type Track struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	Href     string   `json:"href"`
	ImageURL string   `json:"image_url,omitempty"`
	Plays    int      `json:"plays"`
}

// PlaylistWithTracks is the body of GET /api/playlists/{id}.
type PlaylistWithTracks struct {
	Playlist
	Tracks []Track `json:"tracks"`
}

// TopTracks is the body of GET /api/me/tracks/top.
type TopTracks struct {
	Tracks []Track `json:"tracks"`
}

// ============================================================================
// Spotify
// ============================================================================

// SpotifyStatus reports whether the user has linked a Spotify account.
type SpotifyStatus struct {
	Connected bool `json:"connected"`
}

// SpotifyPlaylist is the Spotify copy of an exported playlist.
type SpotifyPlaylist struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
