package pool

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := New(2)

	var running atomic.Int32
	var maxRunning atomic.Int32
	release := make(chan struct{})

	// Spawn blocks while both slots are busy, so jobs are submitted from a
	// separate goroutine until release lets the running ones finish.
	spawned := make(chan struct{})
	go func() {
		defer close(spawned)
		for range 5 {
			p.Spawn(func() {
				n := running.Add(1)
				for {
					old := maxRunning.Load()
					if n <= old || maxRunning.CompareAndSwap(old, n) {
						break
					}
				}
				<-release
				running.Add(-1)
			})
		}
	}()

	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, maxRunning.Load(), int32(2))
	close(release)
	<-spawned
	p.Wait()
}

func TestPoolRefusesAfterShutdown(t *testing.T) {
	p := New(1)
	p.Shutdown()

	ran := false
	accepted := p.Spawn(func() { ran = true })

	assert.False(t, accepted)
	assert.False(t, ran)
	assert.True(t, p.Closed())
}
