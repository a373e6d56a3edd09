package service

import (
	"sync"

	"go.uber.org/zap"
)

// FlightGate is the single-flight guard for customer loads. At most one load
// per key runs at a time; concurrent duplicates are admitted false and the
// caller skips, it never queues. The in-flight set is created at service
// init and read or written only through Admit and Release.
type FlightGate struct {
	mu       sync.Mutex
	inflight map[string]struct{}
	log      *zap.Logger
}

// NewFlightGate creates a new flight gate
func NewFlightGate(log *zap.Logger) *FlightGate {
	return &FlightGate{
		inflight: make(map[string]struct{}),
		log:      log,
	}
}

// Admit marks key as in-flight and returns true, unless a load for key is
// already running, in which case it returns false and the caller must skip.
// Rejection is a debug trace, never a user-facing error.
func (g *FlightGate) Admit(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, running := g.inflight[key]; running {
		g.log.Debug("load already in flight, skipping", zap.String("key", key))
		return false
	}
	g.inflight[key] = struct{}{}
	return true
}

// Release clears the in-flight marker. Callers must invoke it in a defer so
// it runs on every exit path, success or failure.
func (g *FlightGate) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, key)
}

// InFlight reports whether a load for key is currently running.
func (g *FlightGate) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, running := g.inflight[key]
	return running
}
