package atlassian

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies an API failure into the categories callers branch on.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindNotFound
	KindValidation
	KindRateLimit
	KindTransient
	KindIngestion
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	case KindIngestion:
		return "ingestion"
	default:
		return "unknown"
	}
}

// Error is the vendor-agnostic API error surfaced by both clients.
type Error struct {
	Kind       Kind
	Status     int
	Message    string
	RetryAfter time.Duration // only set for KindRateLimit, 0 if the vendor gave no hint
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&sb, " (%d)", e.Status)
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Kind == KindRateLimit && e.RetryAfter > 0 {
		fmt.Fprintf(&sb, " (retry after %s)", e.RetryAfter)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == k
}

// NewValidationError reports a malformed parameter before any network call.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewIngestionError reports a failure of the external ingestion collaborator.
func NewIngestionError(msg string, err error) *Error {
	return &Error{Kind: KindIngestion, Message: msg, Err: err}
}

// ClassifyStatus maps a non-2xx vendor response to the error taxonomy. Some
// Jira instances mask permission problems as 404; the message carries the
// body excerpt so operators can tell.
func ClassifyStatus(status int, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 500 {
		msg = msg[:500]
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Kind: KindAuth, Status: status, Message: msg}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: status, Message: msg}
	case status == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, Status: status, Message: msg}
	case status >= 500:
		return &Error{Kind: KindTransient, Status: status, Message: msg}
	default:
		return &Error{Kind: KindUnknown, Status: status, Message: msg}
	}
}

// classifyTransport maps a transport-level failure (timeout, reset, DNS) to
// KindTransient.
func classifyTransport(err error) *Error {
	msg := err.Error()
	var nerr net.Error
	if errors.As(err, &nerr) {
		return &Error{Kind: KindTransient, Message: msg, Err: err}
	}
	return &Error{Kind: KindTransient, Message: msg, Err: err}
}

// parseRetryAfter reads the Retry-After header as delta-seconds. HTTP-date
// values are ignored; the caller just gets no hint.
func parseRetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return 0
}
