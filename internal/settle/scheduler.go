package settle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/albapepper/scoracle-games/internal/game"
)

// RunActive settles every ACTIVE instance on a bounded worker pool.
// Instances are independent; the lease keeps two sweeps from settling the
// same one at once, and a busy instance is simply counted and skipped.
func (e *Engine) RunActive(ctx context.Context, workers int) SchedulerResult {
	start := e.now()
	var result SchedulerResult

	sctx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	active, err := e.deps.Store.ListInstances(sctx, game.InstanceActive)
	cancel()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list active instances: %v", err))
		result.Duration = e.now().Sub(start)
		return result
	}

	result.InstancesFound = len(active)
	if len(active) == 0 {
		result.Duration = e.now().Sub(start)
		return result
	}

	// Worker pool: one channel of instance ids, N workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(active) {
		workers = len(active)
	}

	ch := make(chan string, len(active))
	for _, in := range active {
		ch <- in.ID
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ch {
				if ctx.Err() != nil {
					return
				}
				pr, err := e.Settle(ctx, id)

				mu.Lock()
				result.record(pr, err)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	result.Duration = e.now().Sub(start)
	return result
}

func (r *SchedulerResult) record(pr PassResult, err error) {
	r.InstancesProcessed++
	r.Results = append(r.Results, pr)

	switch {
	case errors.Is(err, game.ErrConcurrentSettlement):
		r.Busy++
		return
	case pr.Status == StatusAborted:
		r.Aborted++
	case err != nil:
		r.Failed++
	}
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("instance %s: %v", pr.InstanceID, err))
	}

	if pr.RoundClosed() {
		r.RoundsClosed++
	}
	if pr.Status == StatusCompleted {
		r.Completed++
	}
	if pr.LeaseError != "" {
		r.LeaseErrors++
		r.Errors = append(r.Errors, fmt.Sprintf("instance %s: %s", pr.InstanceID, pr.LeaseError))
	}
	for _, ee := range pr.Errors {
		r.Errors = append(r.Errors, fmt.Sprintf("instance %s: %s", pr.InstanceID, ee.Error()))
	}
}
