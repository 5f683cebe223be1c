package sync

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Invariant: work on the same key never interleaves.
func TestShardedMutex_SameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	var flags []string
	var wg sync.WaitGroup

	for i := range 200 {
		wg.Go(func() {
			_ = m.WithLock("vendor-1", func() error {
				// read-modify-write without its own lock
				next := append([]string(nil), flags...)
				flags = append(next, fmt.Sprintf("flag-%d", i))
				return nil
			})
		})
	}
	wg.Wait()

	assert.Len(t, flags, 200)
}

func TestShardedMutex_StableShard(t *testing.T) {
	m := NewShardedMutex()
	assert.Equal(t, m.shardFor("vendor-1"), m.shardFor("vendor-1"))
	assert.Equal(t, 0, m.shardFor(""))

	seen := make(map[int]bool)
	for i := range 500 {
		seen[m.shardFor(fmt.Sprintf("vendor-%d", i))] = true
	}
	assert.Greater(t, len(seen), shardCount/2, "keys should spread across shards")
}

func TestShardedMutex_WithLockReturnsError(t *testing.T) {
	m := NewShardedMutex()
	boom := errors.New("boom")

	err := m.WithLock("k", func() error { return boom })
	assert.ErrorIs(t, err, boom)

	// lock released after error
	m.Lock("k")
	m.Unlock("k")
}
