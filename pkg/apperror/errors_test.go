package apperror

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code    int
		message string
	}{
		{http.StatusBadRequest, "Bad request"},
		{http.StatusNotFound, "Resource not found"},
		{http.StatusConflict, "Data changed elsewhere"},
		{http.StatusUnprocessableEntity, "Unprocessable entity"},
		{http.StatusTooManyRequests, "Too many requests"},
		{http.StatusGatewayTimeout, "The operation timed out"},
		{http.StatusInternalServerError, "Internal server error"},
		{http.StatusBadGateway, "Bad Gateway"},
	}
	for _, tt := range tests {
		err := FromStatus(tt.code)
		assert.Equal(t, tt.code, err.Code)
		assert.Equal(t, tt.message, err.Message)
	}
}
