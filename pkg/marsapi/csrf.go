package marsapi

import (
	"net/http"
)

// CSRFSource yields the CSRF token to attach to a request, or "" when the
// session has none.
type CSRFSource interface {
	CSRFToken(req *http.Request) string
}

// CSRFInjector copies the CSRF cookie value into the X-CSRF-Token header on
// every outgoing request. It is a no-op when no token is available, so public
// calls made before login do not fail.
type CSRFInjector struct {
	Source CSRFSource
}

// BeforeRequest implements RequestHook. An existing header is overwritten.
func (i CSRFInjector) BeforeRequest(req *http.Request) {
	if i.Source == nil {
		return
	}
	if token := i.Source.CSRFToken(req); token != "" {
		req.Header.Set(CSRFHeader, token)
	}
}

// jarCSRF reads the CSRF cookie the jar would send to the request's URL.
type jarCSRF struct {
	jar http.CookieJar
}

func (s jarCSRF) CSRFToken(req *http.Request) string {
	return CredentialsFromCookies(s.jar.Cookies(req.URL)).CSRFToken
}
