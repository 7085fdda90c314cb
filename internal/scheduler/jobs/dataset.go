package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/dataset"
	"github.com/wonny/epo/internal/portfolio"
	"github.com/wonny/epo/internal/solver"
	"github.com/wonny/epo/pkg/logger"
)

// BundleSource builds a fresh tensor bundle (dataset.Builder)
type BundleSource interface {
	Build(ctx context.Context) (*contracts.TensorBundle, error)
}

// OptimalStore persists precomputed optimal decisions (portfolio.Repository)
type OptimalStore interface {
	SaveOptimalSet(ctx context.Context, set *contracts.OptimalSet) error
}

// PrecomputeStep solves every cost row of the rebuilt bundle and stores the result
type PrecomputeStep struct {
	Backend solver.Backend
	Options portfolio.BuildOptions
	Config  dataset.PrecomputeConfig
	Store   OptimalStore
}

// DatasetJob rebuilds the tensor bundle on a schedule
// ⭐ SSOT: 데이터셋 재생성 스케줄은 이 Job에서만
type DatasetJob struct {
	source     BundleSource
	path       string
	schedule   string
	precompute *PrecomputeStep
	logger     *logger.Logger
}

// NewDatasetJob creates a new dataset job writing to path
func NewDatasetJob(source BundleSource, path, schedule string, log *logger.Logger) *DatasetJob {
	return &DatasetJob{
		source:   source,
		path:     path,
		schedule: schedule,
		logger:   logger.OrNop(log),
	}
}

// WithPrecompute adds the optimal-solution step after each rebuild
func (j *DatasetJob) WithPrecompute(step PrecomputeStep) *DatasetJob {
	j.precompute = &step
	return j
}

// Name returns the job name
func (j *DatasetJob) Name() string {
	return "dataset_rebuild"
}

// Schedule returns the cron schedule
func (j *DatasetJob) Schedule() string {
	return j.schedule
}

// Run rebuilds and saves the bundle
func (j *DatasetJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled dataset rebuild")

	bundle, err := j.source.Build(ctx)
	if err != nil {
		return fmt.Errorf("build dataset: %w", err)
	}
	if err := dataset.SaveBundle(j.path, bundle); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}

	T, N, K := bundle.Dims()
	j.logger.WithFields(map[string]interface{}{
		"run_id": bundle.RunID,
		"path":   j.path,
		"shape":  fmt.Sprintf("%dx%dx%d", T, N, K),
	}).Info("Dataset bundle saved")

	if j.precompute == nil {
		return nil
	}
	if bundle.Params == nil {
		return fmt.Errorf("precompute: bundle %s has no structural params", bundle.RunID)
	}

	step := j.precompute
	model, err := portfolio.BuildModel(step.Backend, bundle.Symbols, *bundle.Params, step.Options, j.logger)
	if err != nil {
		return err
	}
	set, err := dataset.Precompute(ctx, model, bundle, step.Config, j.logger)
	if err != nil {
		return err
	}
	if step.Store != nil {
		if err := step.Store.SaveOptimalSet(ctx, set); err != nil {
			return fmt.Errorf("store optimal set: %w", err)
		}
	}

	j.logger.WithField("run_id", bundle.RunID).Info("Optimal solutions stored")
	return nil
}
