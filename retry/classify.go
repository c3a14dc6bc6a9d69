// Error classification for retry decisions.
//
// External-call adapters tag boundary errors with a Kind so the retry
// predicate can switch on the tag instead of matching substrings. Untagged
// errors (raw SDK errors) fall back to substring classification, since the
// upstream SDKs do not expose stable error codes.

package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error from an external call.
type Kind int

const (
	// KindUnknown is an unclassified error.
	KindUnknown Kind = iota
	// KindRateLimited is a rate-limit rejection (retryable).
	KindRateLimited
	// KindTimeout is a deadline or request timeout (retryable).
	KindTimeout
	// KindNetwork is a connection-level failure (retryable).
	KindNetwork
	// KindServer is a 5xx-class upstream failure (retryable).
	KindServer
	// KindClient is a 4xx-class caller error (not retryable).
	KindClient
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// TaggedError carries a Kind alongside the underlying error.
type TaggedError struct {
	Kind Kind
	Err  error
}

// Error implements the error interface.
func (e *TaggedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaggedError) Unwrap() error {
	return e.Err
}

// Tag wraps err with the given kind. Returns nil for a nil err.
func Tag(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &TaggedError{Kind: kind, Err: err}
}

// KindOf returns the tagged kind of err, classifying by message when no
// tag is present.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var tagged *TaggedError
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return classifyMessage(err.Error())
}

// Transient reports whether err looks like a transient failure worth
// retrying: rate limits, timeouts, network errors, and server errors.
func Transient(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTimeout, KindNetwork, KindServer:
		return true
	default:
		return false
	}
}

// classifyMessage maps transient signatures in an error message to a Kind.
func classifyMessage(message string) Kind {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "rate limit"), strings.Contains(m, "429"),
		strings.Contains(m, "too many requests"), strings.Contains(m, "quota"):
		return KindRateLimited
	case strings.Contains(m, "timeout"), strings.Contains(m, "timed out"),
		strings.Contains(m, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(m, "connection"), strings.Contains(m, "network"),
		strings.Contains(m, "no such host"), strings.Contains(m, "broken pipe"):
		return KindNetwork
	case strings.Contains(m, "500"), strings.Contains(m, "502"),
		strings.Contains(m, "503"), strings.Contains(m, "504"),
		strings.Contains(m, "internal server error"), strings.Contains(m, "unavailable"),
		strings.Contains(m, "overloaded"):
		return KindServer
	default:
		return KindUnknown
	}
}
