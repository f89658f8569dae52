package smoke

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/halloffame/pkg/logger"
)

// progressInterval throttles progress log lines.
const progressInterval = time.Second

// runPool calls fn for every index in [0, n) from workers goroutines and
// returns how many calls succeeded and failed.
func runPool(ctx context.Context, stage string, workers, n int, verbose bool, fn func(ctx context.Context, i int) error) (ok, failed int) {
	var (
		succeeded  int64
		errored    int64
		done       int64
		lastReport atomic.Int64
	)
	log := logger.Get().Named("smoke")

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					atomic.AddInt64(&errored, 1)
					continue
				}
				if err := fn(ctx, i); err != nil {
					atomic.AddInt64(&errored, 1)
					log.Warn(ctx, stage+" failed", logger.Int("index", i), logger.Error(err))
				} else {
					atomic.AddInt64(&succeeded, 1)
				}

				total := atomic.AddInt64(&done, 1)
				now := time.Now().UnixNano()
				last := lastReport.Load()
				if verbose && now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, stage+" progress",
						logger.Int64("done", total),
						logger.Int("total", n),
						logger.Int64("failed", atomic.LoadInt64(&errored)))
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()
	return int(atomic.LoadInt64(&succeeded)), int(atomic.LoadInt64(&errored))
}
