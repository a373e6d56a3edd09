package apperror

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Kind groups failures by how the caller should react, independent of the
// message text that came with them.
type Kind string

const (
	KindValidation  Kind = "validation"   // 4xx input problems, shown inline
	KindAuth        Kind = "auth"         // 401/403, handled by the session layer
	KindNotFound    Kind = "not_found"    // 404
	KindConflict    Kind = "conflict"     // 409, data changed elsewhere
	KindRateLimited Kind = "rate_limited" // 429, retried later, never surfaced directly
	KindTimeout     Kind = "timeout"      // deadline exceeded before the server answered
	KindNetwork     Kind = "network"      // transport-level failure
	KindServer      Kind = "server"       // 5xx
)

// Classification is an immutable description of a failure. It replaces
// marking flags on caught error values: callers pass the classification
// along instead of mutating the error they received.
type Classification struct {
	Kind    Kind
	Status  int
	Message string
	// Handled reports that a lower layer already surfaced this failure to
	// the user, so it must not be reported a second time.
	Handled bool
}

// Err converts the classification back into an error for propagation.
func (c Classification) Err() *AppError {
	status := c.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return NewAppError(status, c.Message)
}

// Retryable reports whether a single deferred retry is acceptable for this
// failure. Only rate limiting and transport faults qualify; everything else
// either succeeded at the server or needs user input.
func (c Classification) Retryable() bool {
	return c.Kind == KindRateLimited || c.Kind == KindTimeout || c.Kind == KindNetwork
}

// ClassifyStatus maps an HTTP status from the billing backend onto a Kind.
func ClassifyStatus(status int, message string) Classification {
	c := Classification{Status: status, Message: message}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.Kind = KindAuth
		// The shared auth interceptor has already redirected or notified.
		c.Handled = true
	case status == http.StatusNotFound:
		c.Kind = KindNotFound
	case status == http.StatusConflict:
		c.Kind = KindConflict
	case status == http.StatusTooManyRequests:
		c.Kind = KindRateLimited
		c.Handled = true
	case status >= 400 && status < 500:
		c.Kind = KindValidation
	default:
		c.Kind = KindServer
	}
	return c
}

// Classify maps any error coming out of a backend call onto a Classification.
// An *AppError keeps its status; naked transport errors become timeout or
// network kinds.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: ErrTimeout.Message}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Classification{Kind: KindTimeout, Status: http.StatusGatewayTimeout, Message: ErrTimeout.Message}
		}
		return Classification{Kind: KindNetwork, Status: http.StatusBadGateway, Message: err.Error()}
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ClassifyStatus(appErr.Code, appErr.Message)
	}
	return Classification{Kind: KindNetwork, Status: http.StatusBadGateway, Message: err.Error()}
}
