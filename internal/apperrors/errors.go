package apperrors

import (
	"errors"
	"strings"
)

type Kind string

const (
	KindTransient  Kind = "transient"
	KindRateLimit  Kind = "rate_limit"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindBadRequest Kind = "bad_request"
	// KindMalformedOutput marks translated text whose placeholders cannot be mapped back.
	KindMalformedOutput Kind = "malformed_output"
	// KindSegmentation marks an unexpected tree shape during a translation pass.
	KindSegmentation Kind = "segmentation"
)

type Error struct {
	Kind Kind
	// SafeMessage is intended for user-facing output and logs.
	SafeMessage string
	// Cause keeps the original internal error for troubleshooting.
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if msg := strings.TrimSpace(e.SafeMessage); msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

var safeMessages = map[Kind]string{
	KindTransient:       "Temporary upstream error. Please try again.",
	KindRateLimit:       "Rate limit exceeded. Please try again later.",
	KindAuth:            "Authentication failed. Please verify your API key and permissions.",
	KindValidation:      "Response validation failed.",
	KindBadRequest:      "Request rejected by upstream API.",
	KindMalformedOutput: "Translated text contained unrecoverable keyword placeholders.",
	KindSegmentation:    "Failed to collect translatable content from the page.",
}

// New wraps cause with a kind. An empty safeMessage falls back to the kind's default.
func New(kind Kind, safeMessage string, cause error) error {
	msg := strings.TrimSpace(safeMessage)
	if msg == "" {
		msg = safeMessages[kind]
	}
	if msg == "" {
		msg = "Request failed."
	}
	return &Error{
		Kind:        kind,
		SafeMessage: msg,
		Cause:       cause,
	}
}

func Transient(err error) error {
	return New(KindTransient, "", err)
}

func RateLimit(err error) error {
	return New(KindRateLimit, "", err)
}

func Auth(err error) error {
	return New(KindAuth, "", err)
}

func Validation(err error) error {
	return New(KindValidation, "", err)
}

func BadRequest(err error) error {
	return New(KindBadRequest, "", err)
}

func Malformed(err error) error {
	return New(KindMalformedOutput, "", err)
}

func Segmentation(err error) error {
	return New(KindSegmentation, "", err)
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return "", false
	}
	return e.Kind, true
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	// Validation covers model output problems (missing or duplicate ids);
	// the model is non-deterministic so another attempt may succeed.
	return e.Kind == KindTransient || e.Kind == KindRateLimit || e.Kind == KindValidation
}

func IsRateLimit(err error) bool {
	return Is(err, KindRateLimit)
}
