package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNetError struct{ timeout bool }

func (e *fakeNetError) Error() string   { return "dial tcp: connection refused" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return true }

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		kind    Kind
		handled bool
	}{
		{"bad request is validation", http.StatusBadRequest, KindValidation, false},
		{"unprocessable is validation", http.StatusUnprocessableEntity, KindValidation, false},
		{"unauthorized is auth and handled", http.StatusUnauthorized, KindAuth, true},
		{"forbidden is auth and handled", http.StatusForbidden, KindAuth, true},
		{"not found", http.StatusNotFound, KindNotFound, false},
		{"conflict", http.StatusConflict, KindConflict, false},
		{"rate limited is handled", http.StatusTooManyRequests, KindRateLimited, true},
		{"server error", http.StatusInternalServerError, KindServer, false},
		{"bad gateway", http.StatusBadGateway, KindServer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyStatus(tt.status, "boom")
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.status, c.Status)
			assert.Equal(t, tt.handled, c.Handled)
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("deadline exceeded is timeout", func(t *testing.T) {
		c := Classify(context.DeadlineExceeded)
		assert.Equal(t, KindTimeout, c.Kind)
		assert.True(t, c.Retryable())
	})

	t.Run("wrapped deadline is timeout", func(t *testing.T) {
		c := Classify(fmt.Errorf("fetching ledger: %w", context.DeadlineExceeded))
		assert.Equal(t, KindTimeout, c.Kind)
	})

	t.Run("net error is network", func(t *testing.T) {
		c := Classify(&fakeNetError{})
		assert.Equal(t, KindNetwork, c.Kind)
		assert.True(t, c.Retryable())
	})

	t.Run("net timeout is timeout", func(t *testing.T) {
		c := Classify(&fakeNetError{timeout: true})
		assert.Equal(t, KindTimeout, c.Kind)
	})

	t.Run("app error keeps status", func(t *testing.T) {
		c := Classify(NewConflictError("invoice changed"))
		assert.Equal(t, KindConflict, c.Kind)
		assert.Equal(t, http.StatusConflict, c.Status)
		assert.False(t, c.Retryable())
	})

	t.Run("unknown error is network", func(t *testing.T) {
		c := Classify(errors.New("something odd"))
		assert.Equal(t, KindNetwork, c.Kind)
	})
}

func TestClassificationErr(t *testing.T) {
	c := ClassifyStatus(http.StatusConflict, "stale write")
	appErr := c.Err()
	assert.Equal(t, http.StatusConflict, appErr.Code)
	assert.Equal(t, "stale write", appErr.Message)

	var zero Classification
	zero.Message = "fell through"
	assert.Equal(t, http.StatusInternalServerError, zero.Err().Code)
}
