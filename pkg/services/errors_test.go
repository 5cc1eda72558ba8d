package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeHTTPStatus(t *testing.T) {
	tests := map[Code]int{
		CodeUnauthenticated: http.StatusUnauthorized,
		CodeUnauthorized:    http.StatusForbidden,
		CodeNotInvited:      http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeNoActiveSession: http.StatusNotFound,
		CodeAlreadyHandled:  http.StatusConflict,
		CodeConfiguration:   http.StatusServiceUnavailable,
		CodeInvalidArgument: http.StatusBadRequest,
		Code("SOMETHING"):   http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, code.HTTPStatus(), code)
	}
}

func TestErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", notFound("invitation not found"))
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.NotErrorIs(t, wrapped, ErrUnauthorized)

	assert.ErrorIs(t, unauthenticated(), ErrUnauthorized)
	assert.NotErrorIs(t, unauthorized("x"), &Error{Code: CodeUnauthenticated})

	cause := errors.New("boom")
	err := configurationError(cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "boom")
}
