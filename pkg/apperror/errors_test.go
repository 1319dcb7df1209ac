package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageWrapsDriverErrors(t *testing.T) {
	driverErr := errors.New("dial tcp: connection refused")

	err := Storage(driverErr)

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, driverErr)
	assert.Equal(t, http.StatusServiceUnavailable, MapErrorToStatus(err))
	assert.Equal(t, "storage_unavailable", Code(err))
}

func TestStorageKeepsDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("claim 7: %w", ErrDuplicateClaim)

	err := Storage(wrapped)

	assert.Same(t, wrapped, err)
	assert.NotErrorIs(t, err, ErrStorageUnavailable)
	assert.Nil(t, Storage(nil))
}

func TestMessageIsStable(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
		{ErrSelfDealing, http.StatusForbidden, "self_dealing"},
		{ErrRequestClosed, http.StatusConflict, "request_closed"},
		{ErrCommentTooShort, http.StatusBadRequest, "comment_too_short"},
		{fmt.Errorf("resolve: %w", ErrUnauthorized), http.StatusForbidden, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatus(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
			assert.NotEmpty(t, Message(tt.err))
		})
	}
}

func TestUnauthorizedLeaksNothing(t *testing.T) {
	err := fmt.Errorf("admin 42 not in admin set {1,2}: %w", ErrUnauthorized)
	assert.Equal(t, "unauthorized", Message(err))
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatus(err))
	assert.Equal(t, "internal", Code(err))
	assert.NotContains(t, Message(err), "boom")
}
