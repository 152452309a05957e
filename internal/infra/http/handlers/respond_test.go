package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cadencehq/cadence/internal/usecase"
)

func TestWriteErrorMapsDomainCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", usecase.NotFound("lead not found"), http.StatusNotFound},
		{"invalid state", usecase.InvalidState("cannot start"), http.StatusConflict},
		{"validation", usecase.ValidationFailed([]string{"email: is required"}), http.StatusBadRequest},
		{"duplicate", usecase.NewDomainError(usecase.CodeDuplicate, "exists"), http.StatusConflict},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tc.err)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, errors.New("pq: password authentication failed for user"))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestUserIDDefaultsWhenHeaderMissing(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "default", userID(r))

	r.Header.Set("X-User-ID", "user-42")
	assert.Equal(t, "user-42", userID(r))
}
