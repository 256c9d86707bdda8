package slicer

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SliceAll slices independent seed sets concurrently. Each set runs as its
// own operation with its own Accessor and Slice, so workers share nothing
// but the Opener. results[i] corresponds to seedSets[i]. The first failure
// cancels the remaining operations.
func (s *Slicer) SliceAll(ctx context.Context, seedSets [][]int64, workers int) ([]*Slice, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]*Slice, len(seedSets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seeds := range seedSets {
		g.Go(func() error {
			sl, err := s.Slice(gctx, seeds)
			if err != nil {
				return fmt.Errorf("seed set %d: %w", i, err)
			}
			results[i] = sl
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
