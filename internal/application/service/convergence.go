package service

import (
	"context"
	"sync"
	"time"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/repository"
	"go.uber.org/zap"
)

// SnapshotReloader reloads the ledger view for a customer if that customer
// is still selected. Satisfied by *LedgerService.
type SnapshotReloader interface {
	Reload(ctx context.Context, customerID int64) error
}

// ConvergenceScheduler chases an eventually consistent backend after a
// successful write: an immediate recalculate-and-reload, then one delayed
// reload to catch totals the backend settles asynchronously. Repeat writes
// to the same customer within the delay window coalesce into a single
// delayed pass.
type ConvergenceScheduler struct {
	customerRepo repository.CustomerRepository
	loader       SnapshotReloader
	throttle     *RefreshThrottle
	summary      func()
	delay        time.Duration
	timeout      time.Duration
	log          *zap.Logger

	mu         sync.Mutex
	refreshing map[int64]bool
	pending    map[int64]*time.Timer
	stopped    bool
}

// NewConvergenceScheduler creates the scheduler. summary refreshes the
// customer list and runs behind throttle; delay is the settle window before
// the trailing reload.
func NewConvergenceScheduler(
	customerRepo repository.CustomerRepository,
	loader SnapshotReloader,
	throttle *RefreshThrottle,
	summary func(),
	delay time.Duration,
	timeout time.Duration,
	log *zap.Logger,
) *ConvergenceScheduler {
	return &ConvergenceScheduler{
		customerRepo: customerRepo,
		loader:       loader,
		throttle:     throttle,
		summary:      summary,
		delay:        delay,
		timeout:      timeout,
		log:          log,
		refreshing:   make(map[int64]bool),
		pending:      make(map[int64]*time.Timer),
	}
}

// IsRefreshing reports whether the immediate post-write reload for the
// customer is still running. Callers use it to hold their view until fresh
// data lands.
func (c *ConvergenceScheduler) IsRefreshing(customerID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing[customerID]
}

// AfterWrite runs the convergence sequence for a customer that was just
// written to: ask the backend to recompute its balance, reload the view,
// refresh the throttled summary, and arm the delayed trailing pass. The
// immediate part completes before AfterWrite returns so callers hand the
// user a view that already reflects the write.
func (c *ConvergenceScheduler) AfterWrite(ctx context.Context, customerID int64) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.refreshing[customerID] = true
	c.mu.Unlock()

	if err := c.customerRepo.RecalculateBalance(ctx, customerID); err != nil {
		// Advisory: the reload below fetches whatever the backend has.
		c.log.Warn("post-write recalculation failed",
			zap.Int64("customer_id", customerID),
			zap.Error(err),
		)
	}
	c.reload(ctx, customerID)

	c.mu.Lock()
	delete(c.refreshing, customerID)
	c.mu.Unlock()

	c.refreshSummary()
	c.armDelayed(customerID)
}

// ForceReload is the conflict path: the backend rejected a write because
// local state was stale, so the view and summary are refreshed right away
// with no delayed pass.
func (c *ConvergenceScheduler) ForceReload(ctx context.Context, customerID int64) {
	c.reload(ctx, customerID)
	c.refreshSummary()
}

// Recover is the ambiguous-outcome path after a timeout or network failure:
// the write may or may not have landed, so converge on whatever the backend
// now holds. One recovery pass per failed submission.
func (c *ConvergenceScheduler) Recover(customerID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.customerRepo.RecalculateBalance(ctx, customerID); err != nil {
		c.log.Warn("recovery recalculation failed",
			zap.Int64("customer_id", customerID),
			zap.Error(err),
		)
	}
	c.reload(ctx, customerID)
	c.refreshSummary()
}

// Stop cancels all pending delayed passes. Armed timers that already fired
// finish on their own.
func (c *ConvergenceScheduler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	for id, t := range c.pending {
		t.Stop()
		delete(c.pending, id)
	}
}

func (c *ConvergenceScheduler) reload(ctx context.Context, customerID int64) {
	if err := c.loader.Reload(ctx, customerID); err != nil {
		switch err {
		case ErrLoadSuperseded, ErrNoSelection:
			// The user moved on; nothing to converge.
		default:
			c.log.Warn("post-write reload failed",
				zap.Int64("customer_id", customerID),
				zap.Error(err),
			)
		}
	}
}

func (c *ConvergenceScheduler) refreshSummary() {
	if c.summary == nil {
		return
	}
	if c.throttle == nil {
		c.summary()
		return
	}
	c.throttle.Trigger("customers:summary", c.summary)
}

// armDelayed schedules the trailing reload. A second write inside the
// window restarts the timer instead of stacking a second pass.
func (c *ConvergenceScheduler) armDelayed(customerID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if t, ok := c.pending[customerID]; ok {
		t.Reset(c.delay)
		return
	}
	c.pending[customerID] = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		delete(c.pending, customerID)
		stopped := c.stopped
		c.mu.Unlock()
		if stopped {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		c.reload(ctx, customerID)
		c.refreshSummary()
	})
}
