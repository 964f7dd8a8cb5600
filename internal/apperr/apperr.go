package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the service. Handlers map these to HTTP
// status codes; everything else surfaces as a 500.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrValidation    = errors.New("invalid request")
)

// NotFound wraps ErrNotFound with a subject, e.g. "user abc123".
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Validation wraps ErrValidation with a reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}

// UpstreamError is a non-success response from an external provider or a
// remote fetch. It keeps the status and (truncated) body so callers can log
// what the provider actually said.
type UpstreamError struct {
	Provider string
	Status   int
	Body     string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Status, e.Body)
}

// Upstream builds an UpstreamError, truncating long bodies.
func Upstream(provider string, status int, body []byte) *UpstreamError {
	const maxBody = 512
	b := string(body)
	if len(b) > maxBody {
		b = b[:maxBody]
	}
	return &UpstreamError{Provider: provider, Status: status, Body: b}
}

// IsUpstream reports whether err wraps an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
