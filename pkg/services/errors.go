package services

import (
	"fmt"
	"net/http"

	"arena-breakout-backend/pkg/models"
)

// Code is a machine-readable error code returned to clients.
type Code string

const (
	// CodeUnauthenticated is an Unauthorized failure where no caller is known.
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeAlreadyHandled  Code = "ALREADY_HANDLED"
	CodeNoActiveSession Code = "NO_ACTIVE_SESSION"
	CodeNotInvited      Code = "NOT_INVITED"
	CodeConfiguration   Code = "CONFIGURATION_ERROR"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus maps the code onto a response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized, CodeNotInvited:
		return http.StatusForbidden
	case CodeNotFound, CodeNoActiveSession:
		return http.StatusNotFound
	case CodeAlreadyHandled:
		return http.StatusConflict
	case CodeConfiguration:
		return http.StatusServiceUnavailable
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error returned by every service.
type Error struct {
	Code    Code
	Message string
	// Status is the invitation's current status for CodeAlreadyHandled.
	Status models.InvitationStatus
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code. An unauthenticated error also matches ErrUnauthorized.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code || (t.Code == CodeUnauthorized && e.Code == CodeUnauthenticated)
}

// Sentinels for errors.Is.
var (
	ErrUnauthorized    = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyHandled  = &Error{Code: CodeAlreadyHandled, Message: "already handled"}
	ErrNoActiveSession = &Error{Code: CodeNoActiveSession, Message: "no active session"}
	ErrNotInvited      = &Error{Code: CodeNotInvited, Message: "not invited"}
	ErrConfiguration   = &Error{Code: CodeConfiguration, Message: "configuration error"}
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

func unauthenticated() *Error {
	return &Error{Code: CodeUnauthenticated, Message: "authentication required"}
}

func unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

func notFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

func alreadyHandled(status models.InvitationStatus) *Error {
	return &Error{Code: CodeAlreadyHandled, Message: "invitation already " + string(status), Status: status}
}

func invalidArgument(msg string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: msg}
}

func configurationError(cause error) *Error {
	return &Error{Code: CodeConfiguration, Message: "media server is not configured", Cause: cause}
}
