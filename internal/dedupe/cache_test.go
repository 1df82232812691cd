// ABOUTME: Tests for the submission dedupe cache
// ABOUTME: Validates TTL expiration, size-bounded eviction and concurrency safety

package dedupe

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_FirstDeliveryIsNotADuplicate(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("general:msg-1"))
	assert.True(t, cache.CheckAndMark("general:msg-1"), "redelivery within TTL is a duplicate")
}

func TestCache_ExpiredKeyIsNewAgain(t *testing.T) {
	cache := New(10*time.Millisecond, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("expiring"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, cache.CheckAndMark("expiring"), "expired key should be accepted again")
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := New(5*time.Minute, 3)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("a"))
	assert.False(t, cache.CheckAndMark("b"))
	assert.False(t, cache.CheckAndMark("c"))
	assert.False(t, cache.CheckAndMark("d")) // evicts "a"

	assert.Equal(t, 3, cache.Len())
	assert.False(t, cache.CheckAndMark("a"), "evicted key should be accepted again")
}

func TestCache_RemarkRefreshesRecency(t *testing.T) {
	cache := New(5*time.Minute, 2)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("a"))
	assert.False(t, cache.CheckAndMark("b"))

	// Touch "a" so "b" becomes the oldest.
	assert.True(t, cache.CheckAndMark("a"))
	assert.False(t, cache.CheckAndMark("c")) // evicts "b"

	assert.True(t, cache.CheckAndMark("a"))
	assert.False(t, cache.CheckAndMark("b"))
}

func TestCache_ForgetReleasesKey(t *testing.T) {
	cache := New(5*time.Minute, 100)
	defer cache.Close()

	assert.False(t, cache.CheckAndMark("general:msg-1"))
	cache.Forget("general:msg-1")
	assert.False(t, cache.CheckAndMark("general:msg-1"), "forgotten key should be accepted again")
	assert.True(t, cache.CheckAndMark("general:msg-1"))

	cache.Forget("never-seen") // no-op
	assert.Equal(t, 1, cache.Len())
}

func TestCache_ConcurrentCheckAndMark(t *testing.T) {
	cache := New(5*time.Minute, 1000)
	defer cache.Close()

	const workers = 8
	var wg sync.WaitGroup
	duplicates := make([]int, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if cache.CheckAndMark(fmt.Sprintf("key-%d", i)) {
					duplicates[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	// Each key is accepted exactly once across all workers.
	total := 0
	for _, d := range duplicates {
		total += d
	}
	assert.Equal(t, workers*100-100, total)
	assert.Equal(t, 100, cache.Len())
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	cache := New(time.Minute, 10)
	cache.Close()
	cache.Close()
}
