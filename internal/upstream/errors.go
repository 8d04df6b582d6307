package upstream

import "fmt"

// Kind classifies an upstream failure the way the HTTP layer's error
// taxonomy requires it classified for status-code mapping.
type Kind string

const (
	// KindRateLimited is an upstream 429.
	KindRateLimited Kind = "upstream_rate_limited"

	// KindStatus is any other non-2xx upstream response.
	KindStatus Kind = "upstream_status"

	// KindTransport is a network failure or an unparseable response.
	KindTransport Kind = "upstream_transport"
)

// Error carries enough context for the HTTP layer to mirror or translate
// an upstream failure without re-deriving it.
type Error struct {
	Kind       Kind
	StatusCode int
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s (status %d): %s: %v", e.Kind, e.StatusCode, e.Reason, e.Err)
	}
	return fmt.Sprintf("upstream %s (status %d): %s", e.Kind, e.StatusCode, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func rateLimited() *Error {
	return &Error{Kind: KindRateLimited, StatusCode: 429, Reason: "rate limited by upstream API"}
}

func statusError(code int, reason string) *Error {
	return &Error{Kind: KindStatus, StatusCode: code, Reason: reason}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Reason: "failed to fetch", Err: err}
}

// retryable reports whether the classified error should be retried by the
// client's own backoff loop. A 429 is never retried here — it is mapped
// straight through to the caller, deliberately asymmetric with the local
// limiter's own Retry-After (see DESIGN.md).
func retryable(err *Error) bool {
	switch err.Kind {
	case KindTransport:
		return true
	case KindStatus:
		return err.StatusCode >= 500
	default:
		return false
	}
}
