// Package parallel runs independent work units over a bounded worker
// pool. A unit's failure or panic is recorded against that unit alone;
// the remaining units keep running.
package parallel

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/pkg/logger"
)

// Result pairs one unit's output with its outcome. Exactly one of
// Value and Err is meaningful.
type Result[U, V any] struct {
	Unit  U
	Value V
	Err   error
}

// Config bounds the pool.
type Config struct {
	Workers int
}

func (c Config) workers() int {
	if c.Workers < 1 {
		return 1
	}
	return c.Workers
}

// Run fans units out over cfg.Workers goroutines and collects every
// unit's result. Results come back in submission order. A nil error
// from fn counts as succeeded; a non-nil error or a panic counts as
// failed. Once ctx is canceled, unstarted units fail with ctx.Err()
// instead of running.
func Run[U, V any](ctx context.Context, cfg Config, log *logger.Logger, units []U, fn func(context.Context, U) (V, error)) ([]Result[U, V], contracts.Counts) {
	results := make([]Result[U, V], len(units))
	counts := contracts.Counts{Submitted: len(units)}
	if len(units) == 0 {
		return results, counts
	}

	type task struct {
		idx  int
		unit U
	}
	taskCh := make(chan task, len(units))

	var wg sync.WaitGroup
	for i := 0; i < cfg.workers(); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for t := range taskCh {
				select {
				case <-ctx.Done():
					results[t.idx] = Result[U, V]{Unit: t.unit, Err: ctx.Err()}
					continue
				default:
				}
				value, err := runUnit(ctx, workerID, log, t.unit, fn)
				results[t.idx] = Result[U, V]{Unit: t.unit, Value: value, Err: err}
			}
		}(i)
	}

	for i, u := range units {
		taskCh <- task{idx: i, unit: u}
	}
	close(taskCh)
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			counts.Failed++
		} else {
			counts.Succeeded++
		}
	}
	return results, counts
}

// runUnit isolates one unit so a panic in fn is downgraded to that
// unit's error.
func runUnit[U, V any](ctx context.Context, workerID int, log *logger.Logger, unit U, fn func(context.Context, U) (V, error)) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.WithFields(map[string]interface{}{
				"worker": workerID,
				"unit":   fmt.Sprintf("%v", unit),
				"stack":  string(debug.Stack()),
			}).Error("Worker unit panicked")
		}
	}()
	return fn(ctx, unit)
}
