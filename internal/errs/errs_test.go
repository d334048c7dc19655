package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{Unauthenticated("no token"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{Internal("boom", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err))
	}
}

func TestMessageHidesInternalCause(t *testing.T) {
	err := Internal("writing report", errors.New("connection refused"))
	assert.Equal(t, "Internal server error", Message(err))

	// The full cause stays available for logging.
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessagePassesClientErrors(t *testing.T) {
	assert.Equal(t, "report not found", Message(NotFound("report not found")))
	assert.Equal(t, "invalid status \"gone\"", Message(Validation("invalid status %q", "gone")))
}

func TestKindOfWrappedError(t *testing.T) {
	inner := NotFound("no such user")
	wrapped := fmt.Errorf("resolving recipients: %w", inner)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := Internal("pinging database", cause)
	assert.True(t, errors.Is(err, cause))
}
