package service

import (
	"sync"
	"testing"
	"time"

	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type commitRecorder struct {
	mu      sync.Mutex
	commits []entity.LedgerFilter
}

func (r *commitRecorder) record(f entity.LedgerFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commits = append(r.commits, f)
}

func (r *commitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.commits)
}

func (r *commitRecorder) last() entity.LedgerFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits[len(r.commits)-1]
}

func TestFilterBurstCommitsOnce(t *testing.T) {
	rec := &commitRecorder{}
	p := NewFilterPipeline(30*time.Millisecond, rec.record, zap.NewNop())
	p.Activate(entity.LedgerFilter{})

	branch := int64(1)
	route := int64(7)
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

	// Three edits in quick succession: each restarts the quiet period, so
	// the batch commits once, after the last edit settles.
	p.SetBranch(&branch)
	time.Sleep(10 * time.Millisecond)
	p.SetRoute(&route)
	time.Sleep(10 * time.Millisecond)
	p.SetDateRange(from, to)

	assert.Equal(t, 0, rec.count())
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	// No second commit trails the batch.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	got := rec.last()
	assert.Equal(t, &branch, got.BranchID)
	assert.Equal(t, &route, got.RouteID)
	assert.Equal(t, from, got.From)
	assert.Equal(t, to, got.To)
}

func TestFilterBranchChangeClearsRoute(t *testing.T) {
	rec := &commitRecorder{}
	p := NewFilterPipeline(10*time.Millisecond, rec.record, zap.NewNop())
	route := int64(7)
	p.Activate(entity.LedgerFilter{RouteID: &route})

	branch := int64(2)
	p.SetBranch(&branch)
	assert.Nil(t, p.Draft().RouteID)

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 2*time.Millisecond)
	assert.Nil(t, rec.last().RouteID)
	assert.Equal(t, &branch, rec.last().BranchID)
}

func TestFilterApplyCommitsImmediately(t *testing.T) {
	rec := &commitRecorder{}
	p := NewFilterPipeline(time.Hour, rec.record, zap.NewNop())
	p.Activate(entity.LedgerFilter{})

	staff := int64(3)
	p.SetStaff(&staff)
	assert.Equal(t, 0, rec.count())

	p.Apply()
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, &staff, p.Committed().StaffID)

	// The cancelled timer must not fire a second commit.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestFilterLateTimerAfterApplyCommitsNothing(t *testing.T) {
	rec := &commitRecorder{}
	p := NewFilterPipeline(time.Hour, rec.record, zap.NewNop())
	p.Activate(entity.LedgerFilter{})

	staff := int64(3)
	p.SetStaff(&staff)
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()

	p.Apply()
	assert.Equal(t, 1, rec.count())

	// A quiet-period timer that fired just before Apply took the lock finds
	// its batch already committed and does nothing.
	p.autoCommit(gen)
	assert.Equal(t, 1, rec.count())
}

func TestFilterResetDropsPendingBatch(t *testing.T) {
	rec := &commitRecorder{}
	p := NewFilterPipeline(15*time.Millisecond, rec.record, zap.NewNop())
	p.Activate(entity.LedgerFilter{})

	branch := int64(4)
	p.SetBranch(&branch)
	p.Reset()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.Nil(t, p.Draft().BranchID)
}

func TestFilterEditsIgnoredWithoutSelection(t *testing.T) {
	rec := &commitRecorder{}
	p := NewFilterPipeline(5*time.Millisecond, rec.record, zap.NewNop())

	branch := int64(9)
	p.SetBranch(&branch)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.Nil(t, p.Draft().BranchID)
}
