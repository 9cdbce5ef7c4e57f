package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepClock_Advances(t *testing.T) {
	clock := NewStepClock(Epoch, time.Millisecond)

	assert.Equal(t, Epoch, clock.Peek())
	assert.Equal(t, Epoch, clock.Now())
	assert.Equal(t, Epoch.Add(time.Millisecond), clock.Now())
	assert.Equal(t, Epoch.Add(2*time.Millisecond), clock.Peek())
}

func TestStepClock_Reset(t *testing.T) {
	clock := NewStepClock(Epoch, time.Second)
	clock.Now()
	clock.Now()

	clock.Reset(Epoch)
	assert.Equal(t, Epoch, clock.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	clock := NewStepClock(Epoch, time.Nanosecond)
	const goroutines = 50
	const calls = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(goroutines*calls*time.Nanosecond), clock.Peek())
}

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("run")
	assert.Equal(t, "run-001", gen.Generate())
	assert.Equal(t, "run-002", gen.Generate())

	assert.Equal(t, "attempt-001", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_Unique(t *testing.T) {
	gen := NewSequentialIDs("")
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 1000)
}

func TestBooks(t *testing.T) {
	cur := Books(t, 2, 1)
	require.Equal(t, 3, cur.Len())
	assert.Equal(t, "b1-c0", cur.IDAt(0))
	assert.Equal(t, "b2-c0", cur.IDAt(2))
	assert.Equal(t, []int{1, 2}, cur.Books())
}
