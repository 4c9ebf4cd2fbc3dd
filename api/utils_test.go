package api

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestNextTimestampMonotonic(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastTimestamp, 0)
	})

	prev := nextTimestamp()
	for i := 0; i < 1000; i++ {
		ts := nextTimestamp()
		if ts <= prev {
			t.Fatalf("timestamp not increasing: %d then %d", prev, ts)
		}
		prev = ts
	}
}

func TestNextTimestampConcurrentUnique(t *testing.T) {
	t.Cleanup(func() {
		atomic.StoreInt64(&lastTimestamp, 0)
	})

	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				local = append(local, nextTimestamp())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, ts := range local {
				if _, dup := seen[ts]; dup {
					t.Errorf("duplicate timestamp %d", ts)
					return
				}
				seen[ts] = struct{}{}
			}
		}()
	}
	wg.Wait()
}
