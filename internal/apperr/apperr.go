// Package apperr defines the error taxonomy shared by all handlers and
// stores, and maps it onto HTTP status codes for the echo error handler.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Kind classifies an application error.
type Kind int

const (
	// Validation covers missing or malformed required fields.
	Validation Kind = iota
	// NotFound covers absent profiles, blueprints, sections, logs, children.
	NotFound
	// Conflict covers uniqueness violations (duplicate profile name).
	Conflict
	// Upstream covers any failure of the external chat-completion API,
	// including timeouts and malformed responses.
	Upstream
	// Auth covers missing, invalid, or expired credentials.
	Auth
)

// Error is the single error type that crosses package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validationf(format string, args ...any) *Error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: Conflict, Message: fmt.Sprintf(format, args...)}
}

func Upstreamf(format string, args ...any) *Error {
	return &Error{Kind: Upstream, Message: fmt.Sprintf(format, args...)}
}

func Authf(format string, args ...any) *Error {
	return &Error{Kind: Auth, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a taxonomy error without changing its message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

func statusFor(kind Kind) int {
	switch kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Upstream:
		return http.StatusBadGateway
	case Auth:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// HTTPErrorHandler converts taxonomy errors (and echo's own errors) into
// JSON responses. Registered on the echo instance in the server package.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var ae *Error
	if errors.As(err, &ae) {
		_ = c.JSON(statusFor(ae.Kind), map[string]string{"error": ae.Message})
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		_ = c.JSON(he.Code, map[string]string{"error": msg})
		return
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
