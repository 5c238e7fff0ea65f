package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/marsweb/pkg/httpx"
	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
	"github.com/aussiebroadwan/marsweb/pkg/slogx"
)

// LoginHandler signs users in against the API and hands the resulting
// session cookies to the browser.
type LoginHandler struct {
	APIURL        string
	ClientOptions []marsapi.Option
}

// LoginPage is the body of the login page.
type LoginPage struct {
	Authenticated bool `json:"authenticated"`
}

// HandleGet sends users that already hold an access cookie to the home page.
//
//	@Summary		Login page
//	@Tags			Session
//	@Produce		json
//	@Success		200	{object}	LoginPage	"Not signed in"
//	@Success		302	"Already signed in, redirect to /home"
//	@Router			/login [get]
func (h *LoginHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if marsapi.ExtractCredentials(r).HasAccess() {
		slogx.FromContext(r.Context()).Debug("already signed in, sending to home")
		http.Redirect(w, r, "/home", http.StatusFound)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LoginPage{Authenticated: false})
}

// HandlePost exchanges the submitted email and password for a session.
// The API's Set-Cookie headers are copied onto the response before the
// redirect to the home page.
//
//	@Summary		Sign in
//	@Description	Forwards the credentials to the API and sets the access, refresh and csrf cookies it returns.
//	@Tags			Session
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			email		formData	string	true	"Account email"
//	@Param			password	formData	string	true	"Account password"
//	@Success		303	"Signed in, redirect to /home"
//	@Failure		400	{object}	marsapi.APIError	"Missing email or password"
//	@Failure		401	{object}	marsapi.APIError	"Invalid credentials"
//	@Failure		429	{object}	marsapi.APIError	"Too many attempts for this email"
//	@Failure		502	{object}	marsapi.APIError	"API unreachable"
//	@Router			/login [post]
func (h *LoginHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "invalid form body")
		return
	}

	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	if email == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, "email and password are required")
		return
	}

	client, err := marsapi.NewServerClient(h.APIURL, marsapi.Credentials{}, marsapi.NewResponseWriterSink(w), h.ClientOptions...)
	if err != nil {
		log.Error("failed to create session client", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternalServerError, "internal server error")
		return
	}

	if _, err := client.Login(r.Context(), email, password); err != nil {
		log.Info("login rejected", "err", err)
		httpx.WriteAPIError(w, err)
		return
	}

	log.Info("user signed in")
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}
