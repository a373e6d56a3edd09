package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestFlightGateAdmitRelease(t *testing.T) {
	g := NewFlightGate(zap.NewNop())

	assert.True(t, g.Admit("ledger:1"))
	assert.True(t, g.InFlight("ledger:1"))
	assert.False(t, g.Admit("ledger:1"))

	// A different key is an independent flight.
	assert.True(t, g.Admit("ledger:2"))

	g.Release("ledger:1")
	assert.False(t, g.InFlight("ledger:1"))
	assert.True(t, g.Admit("ledger:1"))
}

func TestFlightGateConcurrentAdmitsOne(t *testing.T) {
	g := NewFlightGate(zap.NewNop())

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Admit("ledger:9") {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted)
}
