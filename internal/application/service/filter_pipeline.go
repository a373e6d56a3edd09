package service

import (
	"sync"
	"time"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"go.uber.org/zap"
)

// FilterPipeline stages filter edits against a draft and commits them as one
// batch after a quiet period, so a burst of edits triggers a single reload.
// Every edit restarts the timer; Apply commits immediately and Reset cancels
// the pending batch. Commits are ignored while no customer is active.
type FilterPipeline struct {
	mu        sync.Mutex
	draft     entity.LedgerFilter
	committed entity.LedgerFilter
	timer     *time.Timer
	quiet     time.Duration
	active    bool
	// gen identifies the batch a scheduled commit belongs to. Cancelling or
	// restarting the quiet period bumps it, so a timer that already fired but
	// lost the lock race commits nothing.
	gen       uint64
	onCommit  func(entity.LedgerFilter)
	log       *zap.Logger
}

// NewFilterPipeline creates the pipeline. onCommit receives the committed
// filter once per batch and is expected to start the reload.
func NewFilterPipeline(quiet time.Duration, onCommit func(entity.LedgerFilter), log *zap.Logger) *FilterPipeline {
	return &FilterPipeline{
		quiet:    quiet,
		onCommit: onCommit,
		log:      log,
	}
}

// Activate resets both stages to the given filter when a customer is
// selected. A pending batch from the previous selection is dropped.
func (p *FilterPipeline) Activate(initial entity.LedgerFilter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.draft = initial
	p.committed = initial
	p.active = true
}

// Deactivate drops the pending batch and stops accepting edits.
func (p *FilterPipeline) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.active = false
}

// SetBranch stages a branch change. Route depends on branch, so the staged
// route is cleared along with it.
func (p *FilterPipeline) SetBranch(id *int64) {
	p.edit(func(f *entity.LedgerFilter) {
		f.BranchID = id
		f.ResetDependents()
	})
}

// SetRoute stages a route change.
func (p *FilterPipeline) SetRoute(id *int64) {
	p.edit(func(f *entity.LedgerFilter) { f.RouteID = id })
}

// SetStaff stages a staff change.
func (p *FilterPipeline) SetStaff(id *int64) {
	p.edit(func(f *entity.LedgerFilter) { f.StaffID = id })
}

// SetDateRange stages a date window change.
func (p *FilterPipeline) SetDateRange(from, to time.Time) {
	p.edit(func(f *entity.LedgerFilter) {
		f.From = from
		f.To = to
	})
}

// Draft returns the staged filter.
func (p *FilterPipeline) Draft() entity.LedgerFilter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// Committed returns the last committed filter.
func (p *FilterPipeline) Committed() entity.LedgerFilter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.committed
}

// Apply commits the draft immediately, cancelling the quiet-period timer.
func (p *FilterPipeline) Apply() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.cancelLocked()
	filter := p.commitLocked()
	p.mu.Unlock()
	p.onCommit(filter)
}

// Reset discards the staged edits and the pending batch, reverting the
// draft to the committed filter.
func (p *FilterPipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelLocked()
	p.draft = p.committed
}

func (p *FilterPipeline) edit(apply func(*entity.LedgerFilter)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	apply(&p.draft)
	// Restart the quiet period: the batch commits only once edits stop.
	if p.timer != nil {
		p.timer.Stop()
	}
	p.gen++
	gen := p.gen
	p.timer = time.AfterFunc(p.quiet, func() { p.autoCommit(gen) })
}

func (p *FilterPipeline) autoCommit(gen uint64) {
	p.mu.Lock()
	if !p.active || gen != p.gen {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	filter := p.commitLocked()
	p.mu.Unlock()
	p.onCommit(filter)
}

func (p *FilterPipeline) commitLocked() entity.LedgerFilter {
	p.committed = p.draft
	p.log.Debug("filter batch committed",
		zap.Time("from", p.committed.From),
		zap.Time("to", p.committed.To),
	)
	return p.committed
}

func (p *FilterPipeline) cancelLocked() {
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
