package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RefreshThrottle enforces a minimum interval between coarse-grained
// refreshes (reports, dashboard summaries). A trigger inside the interval is
// not dropped: it is rescheduled to fire once at the throttle boundary, with
// at most one scheduled follow-up per scope. Repurposed from a per-tenant
// request limiter to an outbound refresh governor.
type RefreshThrottle struct {
	mu       sync.Mutex
	interval time.Duration
	limiters map[string]*rate.Limiter
	pending  map[string]*time.Timer
	stopped  bool
	log      *zap.Logger
}

// NewRefreshThrottle creates a throttle with the given minimum interval
// between refreshes of the same scope.
func NewRefreshThrottle(interval time.Duration, log *zap.Logger) *RefreshThrottle {
	return &RefreshThrottle{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
		pending:  make(map[string]*time.Timer),
		log:      log,
	}
}

func (t *RefreshThrottle) limiterFor(scope string) *rate.Limiter {
	lim, ok := t.limiters[scope]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[scope] = lim
	}
	return lim
}

// Trigger runs fn now if the scope's interval has elapsed, otherwise
// schedules it for the throttle boundary. While a follow-up is already
// scheduled, further triggers coalesce into it.
func (t *RefreshThrottle) Trigger(scope string, fn func()) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if _, scheduled := t.pending[scope]; scheduled {
		t.mu.Unlock()
		t.log.Debug("refresh coalesced into pending follow-up", zap.String("scope", scope))
		return
	}

	res := t.limiterFor(scope).Reserve()
	delay := res.Delay()
	if delay == 0 {
		t.mu.Unlock()
		fn()
		return
	}

	t.log.Debug("refresh rescheduled to throttle boundary",
		zap.String("scope", scope),
		zap.Duration("delay", delay),
	)
	t.pending[scope] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.pending, scope)
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	t.mu.Unlock()
}

// Defer schedules fn for the scope's next throttle boundary even when the
// interval has already elapsed, so it never runs inline. Used for retries
// that must wait out the interval. Coalesces like Trigger.
func (t *RefreshThrottle) Defer(scope string, fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if _, scheduled := t.pending[scope]; scheduled {
		t.log.Debug("deferred refresh coalesced into pending follow-up", zap.String("scope", scope))
		return
	}

	lim := t.limiterFor(scope)
	res := lim.Reserve()
	delay := res.Delay()
	if delay == 0 {
		// The token was free; spend a second one to land on the boundary.
		delay = lim.Reserve().Delay()
	}
	t.pending[scope] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		delete(t.pending, scope)
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

// Stop cancels every scheduled follow-up and refuses further triggers.
func (t *RefreshThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for scope, timer := range t.pending {
		timer.Stop()
		delete(t.pending, scope)
	}
}
