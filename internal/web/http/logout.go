package http

import (
	"net/http"

	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
)

// LogoutHandler clears the three session cookies and redirects to the login page.
// The API is not contacted.
//
//	@Summary	Sign out
//	@Tags		Session
//	@Success	302	"Cookies cleared, redirect to /login"
//	@Router		/logout [get]
func LogoutHandler(secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, name := range []string{
			marsapi.AccessTokenCookie,
			marsapi.RefreshTokenCookie,
			marsapi.CSRFTokenCookie,
		} {
			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				HttpOnly: name != marsapi.CSRFTokenCookie,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	}
}
