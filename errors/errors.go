package errors

import (
	stderrors "errors"
	"fmt"
)

// Sentinel errors surfaced by the session repository and relay service.
var (
	ErrSessionNotFound = stderrors.New("session not found")
	ErrSessionExpired  = stderrors.New("session expired")
)

// ErrorResponse is the JSON error body returned by the relay's API.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewErrorResponse(msg string) *ErrorResponse {
	return &ErrorResponse{Error: msg}
}

// UpstreamError is a non-2xx response from the provider's token endpoint.
// Body carries the raw provider payload for server-side logging; it must
// never be relayed to clients.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("token endpoint returned %d", e.StatusCode)
}
