package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Fetch failure kinds. A *FetchError matches exactly one of them with errors.Is.
var (
	ErrTimeout     = errors.New("timeout")
	ErrConnection  = errors.New("connection")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not_found")
	ErrRateLimited = errors.New("rate_limited")
	ErrBadStatus   = errors.New("bad_status")
	ErrParse       = errors.New("parse")
)

// FetchError describes a page that could not be fetched or parsed.
type FetchError struct {
	URL    string
	Status int
	Kind   error
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Label is the metrics label for the failure kind.
func (e *FetchError) Label() string {
	return errorTypeLabel(e)
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	for _, kind := range []error{ErrTimeout, ErrConnection, ErrForbidden, ErrNotFound, ErrRateLimited, ErrBadStatus, ErrParse} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "other"
}

// classifyError maps a transport error and response status to a failure kind.
func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection
	}

	switch {
	case statusCode == http.StatusForbidden:
		return ErrForbidden
	case statusCode == http.StatusNotFound:
		return ErrNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode >= http.StatusMultipleChoices || (statusCode > 0 && statusCode < http.StatusOK):
		return ErrBadStatus
	}

	if err == nil {
		return nil
	}
	return errOther
}

var errOther = errors.New("other")
