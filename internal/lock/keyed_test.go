package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Normalize([]string{"c", "a", "", "b", "a"}))
	assert.Empty(t, Normalize(nil))
}

func TestKeyedMutualExclusion(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// every set shares "x", so all sections are serialized
			keys := []string{"x"}
			if i%2 == 0 {
				keys = []string{"y", "x"}
			}
			unlock, err := k.Lock(ctx, keys)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}(i)
	}

	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, k.Len())
}

func TestKeyedDisjointSetsDoNotBlock(t *testing.T) {
	k := NewKeyed()
	ctx := context.Background()

	unlockA, err := k.Lock(ctx, []string{"a"})
	require.NoError(t, err)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB, err := k.Lock(ctx, []string{"b", "c"})
		if err == nil {
			unlockB()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on disjoint keys blocked")
	}
}

func TestKeyedOverlappingSetWaits(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = k.Lock(ctx, []string{"c", "b"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// "c" was taken before "b" timed out and must have been released
	unlockC, err := k.Lock(context.Background(), []string{"c"})
	require.NoError(t, err)
	unlockC()

	unlock()
	assert.Equal(t, 0, k.Len())
}

func TestKeyedUnlockIsIdempotent(t *testing.T) {
	k := NewKeyed()

	unlock, err := k.Lock(context.Background(), []string{"a"})
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = k.Lock(context.Background(), []string{"a"})
	require.NoError(t, err)
	unlock()
}
