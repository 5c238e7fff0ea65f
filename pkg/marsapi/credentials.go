package marsapi

import (
	"net/http"
	"strings"
)

// Cookie and header names shared with the mars API.
const (
	AccessTokenCookie  = "access"
	RefreshTokenCookie = "refresh"
	CSRFTokenCookie    = "csrf"

	CSRFHeader      = "X-CSRF-Token"
	RequestIDHeader = "X-Request-ID"
)

// Credentials is the session credential triple carried as cookies.
// An empty field means the corresponding cookie was absent. Values are never
// mutated once extracted; a refresh produces a new Credentials.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	CSRFToken    string
}

// HasAccess reports whether the access token is present.
func (c Credentials) HasAccess() bool { return c.AccessToken != "" }

// HasRefresh reports whether the refresh token is present.
func (c Credentials) HasRefresh() bool { return c.RefreshToken != "" }

// HasCSRF reports whether the CSRF token is present.
func (c Credentials) HasCSRF() bool { return c.CSRFToken != "" }

// IsZero reports whether none of the three cookies were present.
func (c Credentials) IsZero() bool {
	return !c.HasAccess() && !c.HasRefresh() && !c.HasCSRF()
}

// CookieHeader renders the triple as a Cookie header value, skipping absent fields.
func (c Credentials) CookieHeader() string {
	parts := make([]string, 0, 3)
	if c.HasAccess() {
		parts = append(parts, AccessTokenCookie+"="+c.AccessToken)
	}
	if c.HasRefresh() {
		parts = append(parts, RefreshTokenCookie+"="+c.RefreshToken)
	}
	if c.HasCSRF() {
		parts = append(parts, CSRFTokenCookie+"="+c.CSRFToken)
	}
	return strings.Join(parts, "; ")
}

// CookieSource is anything cookies can be looked up on by name.
// *http.Request satisfies it.
type CookieSource interface {
	Cookie(name string) (*http.Cookie, error)
}

// ExtractCredentials reads the three session cookies from src.
// Token contents are not validated; absence is the only condition reported.
func ExtractCredentials(src CookieSource) Credentials {
	return Credentials{
		AccessToken:  cookieValue(src, AccessTokenCookie),
		RefreshToken: cookieValue(src, RefreshTokenCookie),
		CSRFToken:    cookieValue(src, CSRFTokenCookie),
	}
}

// CredentialsFromCookies builds a triple from a cookie list, such as the
// Set-Cookie headers of a refresh response or the contents of a jar.
// Later cookies win over earlier ones with the same name.
func CredentialsFromCookies(cookies []*http.Cookie) Credentials {
	var creds Credentials
	for _, c := range cookies {
		switch c.Name {
		case AccessTokenCookie:
			creds.AccessToken = c.Value
		case RefreshTokenCookie:
			creds.RefreshToken = c.Value
		case CSRFTokenCookie:
			creds.CSRFToken = c.Value
		}
	}
	return creds
}

func cookieValue(src CookieSource, name string) string {
	if src == nil {
		return ""
	}
	c, err := src.Cookie(name)
	if err != nil || c == nil {
		return ""
	}
	return c.Value
}
