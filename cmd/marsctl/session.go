package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"golang.org/x/net/publicsuffix"
)

// sessionFile persists the API's session cookies between runs. Only names
// and values survive a jar round trip, so cookies are restored with Path "/".
type sessionFile struct {
	path string
}

type savedSession struct {
	APIURL  string        `toml:"api_url"`
	Cookies []savedCookie `toml:"cookies"`
}

type savedCookie struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// Jar returns a cookie jar for api holding the saved session, if any.
// A session saved for a different API is ignored.
func (s sessionFile) Jar(api *url.URL) (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var saved savedSession
	_, err = toml.DecodeFile(s.path, &saved)
	if errors.Is(err, fs.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	if saved.APIURL != api.String() {
		return jar, nil
	}

	cookies := make([]*http.Cookie, 0, len(saved.Cookies))
	for _, c := range saved.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	jar.SetCookies(api, cookies)

	return jar, nil
}

// Save writes the jar's cookies for api, readable only by the current user.
func (s sessionFile) Save(jar http.CookieJar, api *url.URL) error {
	saved := savedSession{APIURL: api.String()}
	for _, c := range jar.Cookies(api) {
		saved.Cookies = append(saved.Cookies, savedCookie{Name: c.Name, Value: c.Value})
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(saved); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the saved session.
func (s sessionFile) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
