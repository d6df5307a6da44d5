package provider

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidAPIKey is returned when the vendor rejects the credentials.
	ErrInvalidAPIKey = errors.New("invalid API key")
	// ErrQuotaExceeded is returned when the vendor rate limits or the
	// account quota is used up.
	ErrQuotaExceeded = errors.New("quota exceeded")
)

// StatusError is a non-200 vendor response.
type StatusError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap maps auth and quota statuses onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrInvalidAPIKey
	case http.StatusTooManyRequests:
		return ErrQuotaExceeded
	}
	return nil
}

// IsFatal reports whether err should stop a batch of requests instead of
// being skipped per item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidAPIKey) || errors.Is(err, ErrQuotaExceeded)
}
