package pipeline

import (
	"context"
	"sync"
)

// forEachIndex runs fn for every index in [0, n) with at most limit
// invocations in flight. The first error cancels the shared context so
// siblings wind down, and is returned after every started invocation has
// finished. A parent cancellation surfaces as that context's error.
func forEachIndex(ctx context.Context, limit, n int, fn func(ctx context.Context, i int) error) error {
	if limit < 1 {
		limit = 1
	}

	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	record := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

dispatch:
	for i := 0; i < n; i++ {
		select {
		case sem <- struct{}{}:
		case <-groupCtx.Done():
			break dispatch
		}
		if groupCtx.Err() != nil {
			<-sem
			break dispatch
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(groupCtx, i); err != nil {
				record(err)
			}
		}(i)
	}

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
