package pde

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunAll executes independent runs concurrently, at most limit at a time
// (limit <= 0 means unbounded). Results keep the order of cfgs. The first
// failure cancels the remaining runs and is returned.
func RunAll(ctx context.Context, cfgs []Config, limit int) ([]Snapshots, error) {
	results := make([]Snapshots, len(cfgs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, cfg := range cfgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			snaps, err := RunContext(gctx, cfg)
			if err != nil {
				return fmt.Errorf("run %d (%s): %w", i, cfg.Kind(), err)
			}
			results[i] = snaps
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
