package marsapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ============================================================================
// API Error Codes
// ============================================================================

// ErrorCode is the machine-readable code of a structured API error.
type ErrorCode string

const (
	ErrorCodeUnknown                 ErrorCode = "unknown_error"
	ErrorCodeInternalServerError     ErrorCode = "internal_server_error"
	ErrorCodeBadRequest              ErrorCode = "bad_request"
	ErrorCodeUnprocessableEntity     ErrorCode = "unprocessible_entity"
	ErrorCodeInvalidCredentials      ErrorCode = "invalid_credentials"
	ErrorCodeInvalidAccessToken      ErrorCode = "invalid_access_token"
	ErrorCodeExpiredAccessToken      ErrorCode = "expired_access_token"
	ErrorCodeInvalidRefreshToken     ErrorCode = "invalid_refresh_token"
	ErrorCodeExpiredRefreshToken     ErrorCode = "expired_refresh_token"
	ErrorCodeInsufficientPermissions ErrorCode = "insufficient_permissions"
	ErrorCodeNoSpotifyIntegration    ErrorCode = "no_spotify_integration"
	ErrorCodeNoTracksListened        ErrorCode = "no_tracks_listened"
	ErrorCodeNotFound                ErrorCode = "not_found"
)

func (c ErrorCode) String() string { return string(c) }

// ============================================================================
// Classification
// ============================================================================

// Class partitions error codes by what a client can do about them.
type Class int

const (
	// ClassOther is any code that is not an authentication failure.
	ClassOther Class = iota
	// ClassRecoverable means the access token is invalid or expired; a refresh may fix it.
	ClassRecoverable
	// ClassUnrecoverable means the refresh token is invalid or expired; re-authentication is required.
	ClassUnrecoverable
)

func (c Class) String() string {
	switch c {
	case ClassRecoverable:
		return "recoverable"
	case ClassUnrecoverable:
		return "unrecoverable"
	default:
		return "other"
	}
}

var authCodeClasses = map[ErrorCode]Class{
	ErrorCodeInvalidAccessToken:  ClassRecoverable,
	ErrorCodeExpiredAccessToken:  ClassRecoverable,
	ErrorCodeInvalidRefreshToken: ClassUnrecoverable,
	ErrorCodeExpiredRefreshToken: ClassUnrecoverable,
}

// Classify looks up the class of code. Unknown codes are ClassOther.
func Classify(code string) Class {
	return authCodeClasses[ErrorCode(code)]
}

// IsRecoverableAuthError reports whether code can potentially be fixed by a refresh.
func IsRecoverableAuthError(code string) bool {
	return Classify(code) == ClassRecoverable
}

// IsUnrecoverableAuthError reports whether code requires re-authentication.
func IsUnrecoverableAuthError(code string) bool {
	return Classify(code) == ClassUnrecoverable
}

// ============================================================================
// APIError - structured error body produced by the API
// ============================================================================

// ErrMalformedError is returned when a body does not parse as an APIError.
var ErrMalformedError = errors.New("marsapi: malformed api error body")

// APIError is the structured error body returned by the mars API.
type APIError struct {
	Code    string `json:"code"`
	ErrorID uint64 `json:"error_id"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (status=%d error_id=%d)", e.Code, e.Message, e.Status, e.ErrorID)
}

// ParseAPIError strictly decodes body as an APIError. All four fields must be
// present with the right JSON types, otherwise ErrMalformedError is returned.
func ParseAPIError(body []byte) (*APIError, error) {
	var raw struct {
		Code    *string      `json:"code"`
		ErrorID *json.Number `json:"error_id"`
		Message *string      `json:"message"`
		Status  *json.Number `json:"status"`
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedError, err)
	}
	if raw.Code == nil || raw.ErrorID == nil || raw.Message == nil || raw.Status == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrMalformedError)
	}

	errorID, err := strconv.ParseUint(raw.ErrorID.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: error_id: %v", ErrMalformedError, err)
	}
	status, err := raw.Status.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrMalformedError, err)
	}

	return &APIError{
		Code:    *raw.Code,
		ErrorID: errorID,
		Message: *raw.Message,
		Status:  int(status),
	}, nil
}

// ============================================================================
// Client-side error types
// ============================================================================

// AuthenticationError is a hard authentication failure: the session cannot be
// recovered by this client and the user must sign in again.
type AuthenticationError struct {
	// Code is the API error code that caused the failure, if any.
	Code string

	// Message is a human-readable description.
	Message string

	// Redirect is true when the caller should send the user to the login page.
	Redirect bool

	// Err is the underlying cause (a refresh failure, for example).
	Err error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	msg := fmt.Sprintf("authentication failed: code=%s message=%q", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AuthenticationError) Unwrap() error { return e.Err }

// IsAuthFailure reports whether err is, or wraps, an AuthenticationError.
func IsAuthFailure(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// HTTPError is a non-2xx API response that is not an authentication failure.
// It keeps the status, code, message and request id for correlation.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  uint64
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf(
		"HTTP status error: status=%d code=%s request_id=%d message=%q",
		e.StatusCode, e.Code, e.RequestID, e.Message,
	)
}

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// parseErrorResponse turns a non-2xx response into a typed error.
// A 401 carrying an auth code (recoverable or not) is an AuthenticationError:
// by the time a caller sees it, any refresh this client could do has been tried.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr, err := ParseAPIError(body)
	if err != nil {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Code:       string(ErrorCodeUnknown),
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if resp.StatusCode == http.StatusUnauthorized && Classify(apiErr.Code) != ClassOther {
		return &AuthenticationError{
			Code:     apiErr.Code,
			Message:  apiErr.Message,
			Redirect: true,
			Err:      apiErr,
		}
	}

	return &HTTPError{
		StatusCode: resp.StatusCode,
		Code:       apiErr.Code,
		Message:    apiErr.Message,
		RequestID:  apiErr.ErrorID,
	}
}
