package sim

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/popsim/internal/dynamo"
)

// Job is one independent solve inside a Batch.
type Job struct {
	System dynamo.System
	X0     dynamo.State
	Config Config
}

// Batch solves independent jobs concurrently. Integrators keep scratch
// state, so every job gets a fresh one from newIntegrator.
type Batch struct {
	newIntegrator func() dynamo.Integrator
	workers       int
}

func NewBatch(newIntegrator func() dynamo.Integrator, workers int) *Batch {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Batch{newIntegrator: newIntegrator, workers: workers}
}

// Run returns results in job order. The first failure cancels the rest.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]*Result, error) {
	results := make([]*Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, job := range jobs {
		g.Go(func() error {
			res, err := Solve(ctx, job.System, b.newIntegrator(), job.X0, job.Config)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
