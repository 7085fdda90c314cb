package dataset

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/optmodel"
	"github.com/wonny/epo/pkg/logger"
)

// PrecomputeConfig controls batching of optimal-solution precompute
type PrecomputeConfig struct {
	BatchSize int // cost rows per batch
	Workers   int // concurrent batches
}

// DefaultPrecomputeConfig returns default precompute settings
func DefaultPrecomputeConfig() PrecomputeConfig {
	return PrecomputeConfig{
		BatchSize: 500,
		Workers:   runtime.NumCPU(),
	}
}

// Precompute solves base against every cost row of the bundle.
// Each batch runs on its own clone; base is never mutated.
// ⭐ 배치는 독립적, 공유 상태 없음 (결과 행은 배치별로 분리)
func Precompute(ctx context.Context, base *optmodel.Model, b *contracts.TensorBundle, cfg PrecomputeConfig, log *logger.Logger) (*contracts.OptimalSet, error) {
	log = logger.OrNop(log)
	T, N, _ := b.Dims()
	if base.NumCost() != N {
		return nil, optmodel.ValidationError{Field: "bundle symbols", Want: base.NumCost(), Got: N}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultPrecomputeConfig().BatchSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	set := contracts.NewOptimalSet(b.RunID, b.Times, b.Symbols)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < T; start += batchSize {
		start := start
		end := min(start+batchSize, T)
		g.Go(func() error {
			m := base.Clone()
			for t := start; t < end; t++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := m.SetObjective(b.CostRow(t)); err != nil {
					return err
				}
				sol, err := m.Solve()
				if err != nil {
					return fmt.Errorf("solve %s: %w", b.Times[t].Format(time.RFC3339), err)
				}
				set.Put(t, sol)
			}
			log.WithFields(map[string]interface{}{
				"from": start,
				"to":   end,
			}).Debug("Precompute batch done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("precompute: %w", err)
	}

	unbounded := 0
	for _, s := range set.Statuses {
		if s == contracts.StatusUnbounded {
			unbounded++
		}
	}
	fields := map[string]interface{}{
		"rows":     T,
		"assets":   N,
		"batches":  (T + batchSize - 1) / batchSize,
		"workers":  workers,
		"duration": time.Since(startTime).String(),
	}
	if unbounded > 0 {
		fields["unbounded"] = unbounded
		log.WithFields(fields).Warn("Precompute finished with unbounded rows")
	} else {
		log.WithFields(fields).Info("Precompute finished")
	}

	return set, nil
}
