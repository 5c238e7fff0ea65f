package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
)

// Error codes produced by the web server itself. Codes relayed from the API
// keep their original value.
const (
	CodeInternalServerError = string(marsapi.ErrorCodeInternalServerError)
	CodeBadRequest          = string(marsapi.ErrorCodeBadRequest)
	CodeNotFound            = string(marsapi.ErrorCodeNotFound)
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodeRateLimitExceeded   = "rate_limit_exceeded"
)

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Every page here is rendered from a user's session, so none may be cached.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteError writes an error body in the same shape the API uses.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, marsapi.APIError{
		Code:    code,
		Message: message,
		Status:  status,
	})
}

// WriteAPIError relays an error returned by the API client. API errors keep
// their status, code and error id; anything else (a transport failure, a
// timeout) becomes a 502.
func WriteAPIError(w http.ResponseWriter, err error) {
	var httpErr *marsapi.HTTPError
	if errors.As(err, &httpErr) {
		WriteJSON(w, httpErr.StatusCode, marsapi.APIError{
			Code:    httpErr.Code,
			ErrorID: httpErr.RequestID,
			Message: httpErr.Message,
			Status:  httpErr.StatusCode,
		})
		return
	}

	WriteError(w, http.StatusBadGateway, CodeUpstreamUnavailable, "the api could not be reached")
}
