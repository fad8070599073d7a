package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindConfig              Kind = "config"
	KindValidation          Kind = "validation"
	KindUpstreamRateLimited Kind = "upstream_rate_limited"
	KindUpstreamBilling     Kind = "upstream_billing"
	KindUpstream            Kind = "upstream"
	KindParse               Kind = "parse"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrConfig      = &Error{Kind: KindConfig}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrRateLimited = &Error{Kind: KindUpstreamRateLimited}
	ErrBilling     = &Error{Kind: KindUpstreamBilling}
	ErrUpstream    = &Error{Kind: KindUpstream}
	ErrParse       = &Error{Kind: KindParse}
)

// Error is the only error type that leaves the analysis boundary.
// UpstreamStatus and Body are operator diagnostics and never reach end users.
type Error struct {
	Kind           Kind
	Message        string
	UpstreamStatus int
	Body           string
	Err            error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.UpstreamStatus != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.UpstreamStatus)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// HTTPStatus is the status the service answers with for this error.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamBilling:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is safe to put in an {"error": ...} body.
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindValidation:
		if e.Message != "" {
			return e.Message
		}
		return "userText is required and must be a non-empty string"
	case KindUpstreamRateLimited:
		return "Rate limit exceeded. Please try again later."
	case KindUpstreamBilling:
		return "AI usage credits depleted. Please add funds."
	case KindUpstream:
		if e.UpstreamStatus != 0 {
			return fmt.Sprintf("AI gateway error: %d", e.UpstreamStatus)
		}
		return "AI gateway error"
	case KindParse:
		return "AI response could not be parsed"
	case KindConfig:
		return "AI gateway is not configured"
	default:
		return "Unknown error occurred"
	}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusError is returned by Oracle implementations for a non-2xx upstream reply.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("oracle returned status %d", e.StatusCode)
}

// FromStatus classifies an upstream HTTP status.
func FromStatus(status int, body string) *Error {
	switch status {
	case http.StatusTooManyRequests:
		return &Error{Kind: KindUpstreamRateLimited, Message: "oracle rate limited", UpstreamStatus: status, Body: body}
	case http.StatusPaymentRequired:
		return &Error{Kind: KindUpstreamBilling, Message: "oracle billing error", UpstreamStatus: status, Body: body}
	default:
		return &Error{Kind: KindUpstream, Message: "oracle error", UpstreamStatus: status, Body: body}
	}
}

func newValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func newParseError(msg string, err error) *Error {
	return &Error{Kind: KindParse, Message: msg, Err: err}
}
