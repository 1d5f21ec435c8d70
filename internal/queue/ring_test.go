package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRing_PushPopOrder(t *testing.T) {
	r := NewRing[int](4)
	require.True(t, r.TryPush(1))
	require.True(t, r.TryPush(2))
	require.True(t, r.TryPush(3))

	var out int
	require.True(t, r.TryPop(&out))
	require.Equal(t, 1, out)
	require.True(t, r.TryPop(&out))
	require.Equal(t, 2, out)
	require.True(t, r.TryPop(&out))
	require.Equal(t, 3, out)

	require.False(t, r.TryPop(&out))
}

func TestRing_CapacityRoundsToPow2(t *testing.T) {
	r := NewRing[int](5)
	require.Equal(t, 8, r.Cap())
	r2 := NewRing[int](1)
	require.Equal(t, 2, r2.Cap())
}

func TestRing_FullRejectsPush(t *testing.T) {
	r := NewRing[int](2)
	require.True(t, r.TryPush(1))
	require.True(t, r.TryPush(2))
	require.False(t, r.TryPush(3))
}

func TestRing_WrapsAroundAfterDrain(t *testing.T) {
	r := NewRing[int](2)
	for i := 0; i < 100; i++ {
		require.True(t, r.TryPush(i))
		var out int
		require.True(t, r.TryPop(&out))
		require.Equal(t, i, out)
	}
}

// No value is lost or duplicated under sustained concurrent push/pop, and
// the system makes progress (spec.md testable properties, §8).
func TestRing_ConcurrentProducersConsumersNoLossNoDup(t *testing.T) {
	const (
		producers = 8
		perProd   = 2000
		total     = producers * perProd
	)
	r := NewRing[int](64)

	seen := make([]int32, total)
	var seenMu sync.Mutex
	consumed := 0

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				v := base*perProd + i
				for !r.TryPush(v) {
					// spin under contention, mirrors the backoff callers apply
				}
			}
		}(p)
	}

	var consumerWG sync.WaitGroup
	consumerWG.Add(1)
	go func() {
		defer consumerWG.Done()
		for {
			var v int
			if r.TryPop(&v) {
				seenMu.Lock()
				seen[v]++
				consumed++
				reachedTotal := consumed == total
				seenMu.Unlock()
				if reachedTotal {
					return
				}
			}
		}
	}()

	wg.Wait()
	consumerWG.Wait()

	for i, c := range seen {
		require.Equalf(t, int32(1), c, "value %d seen %d times", i, c)
	}
}
