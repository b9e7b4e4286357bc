// Package pipeline drives a list of units through an inference call with bounded
// concurrency, keeping results in unit order and reporting fractional progress.
package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/scribe/internal/inference"
)

// Stage places a run inside the overall job progress range. After the k-th of n units
// completes, progress is Offset + k/n*Weight.
type Stage struct {
	Name        string
	Offset      float64
	Weight      float64
	Concurrency int
}

// CallFunc processes unit i.
type CallFunc[U any] func(ctx context.Context, i int, unit U) (string, error)

// ProgressFunc receives each new progress value. Calls are serialized and strictly
// increasing.
type ProgressFunc func(progress float64)

// Run calls call for every unit and returns the outputs in unit order. The first
// failing unit cancels the remaining calls; its error is returned as an
// *inference.Failure and no outputs are returned.
func Run[U any](ctx context.Context, stage Stage, units []U, call CallFunc[U], progress ProgressFunc) ([]string, error) {
	n := len(units)
	if n == 0 {
		return nil, nil
	}

	limit := stage.Concurrency
	if limit < 1 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([]string, n)
	var (
		mu   sync.Mutex
		done int
	)

	for i, unit := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := call(gctx, i, unit)
			if err != nil {
				return inference.NewFailure(i, err)
			}
			results[i] = out

			mu.Lock()
			defer mu.Unlock()
			done++
			if progress != nil {
				progress(stage.Offset + float64(done)/float64(n)*stage.Weight)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
