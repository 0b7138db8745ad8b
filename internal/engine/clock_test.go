package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Advance())
	assert.Equal(t, int64(1), c.Current())
}

func TestClock_ConcurrentAdvanceUnique(t *testing.T) {
	c := NewClock()
	const n = 500

	seen := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.Advance()
		}()
	}
	wg.Wait()
	close(seen)

	ticks := make(map[int64]bool)
	for tick := range seen {
		assert.False(t, ticks[tick], "duplicate tick %d", tick)
		ticks[tick] = true
	}
	assert.Equal(t, int64(n), c.Current())
}
