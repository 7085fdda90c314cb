package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/panel"
	"github.com/wonny/epo/internal/portfolio"
	"github.com/wonny/epo/pkg/logger"
)

// BuildConfig describes one dataset build
type BuildConfig struct {
	Query    contracts.PanelQuery
	Pipeline panel.PipelineConfig
	Seed     int64
	Limits   portfolio.RiskLimits
	StatsKey string // experiment hash; empty disables the stats cache
}

// Builder loads raw rows and turns them into a tensor bundle with structural params
// ⭐ SSOT: 데이터셋 생성 흐름 (load → align → scale → pivot → params)
type Builder struct {
	source contracts.PanelSource
	stats  *StatsCache
	cfg    BuildConfig
	logger *logger.Logger
}

// NewBuilder creates a builder; stats may be nil
func NewBuilder(source contracts.PanelSource, stats *StatsCache, cfg BuildConfig, log *logger.Logger) *Builder {
	return &Builder{
		source: source,
		stats:  stats,
		cfg:    cfg,
		logger: logger.OrNop(log),
	}
}

// Build runs one dataset build
func (b *Builder) Build(ctx context.Context) (*contracts.TensorBundle, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := b.logger.WithField("run_id", runID)

	raw, err := b.source.LoadPanel(ctx, b.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("load panel: %w", err)
	}
	if raw.Len() == 0 {
		return nil, fmt.Errorf("load panel: no rows between %s and %s", b.cfg.Query.From, b.cfg.Query.To)
	}

	pipeline := panel.NewPipeline(b.cfg.Pipeline, log)
	restored := false
	if b.stats != nil && b.cfg.StatsKey != "" {
		scaler, found, err := b.stats.Load(ctx, b.cfg.StatsKey)
		if err != nil {
			log.WithError(err).Warn("Scaler stats unavailable, fitting from data")
		} else if found {
			pipeline.WithScaler(scaler)
			restored = true
		}
	}

	bundle, err := pipeline.Build(ctx, raw)
	if err != nil {
		return nil, err
	}

	if b.stats != nil && b.cfg.StatsKey != "" && !restored {
		if err := b.stats.Save(ctx, b.cfg.StatsKey, pipeline.Scaler()); err != nil {
			log.WithError(err).Warn("Failed to cache scaler stats")
		}
	}

	params, err := portfolio.NewStructuralParams(len(bundle.Symbols), b.cfg.Seed, b.cfg.Limits)
	if err != nil {
		return nil, err
	}
	bundle.RunID = runID
	bundle.Params = &params

	T, N, K := bundle.Dims()
	log.WithFields(map[string]interface{}{
		"raw_rows":       raw.Len(),
		"coverage":       float64(raw.Len()) / float64(panel.GridSize(raw)),
		"times":          T,
		"symbols":        N,
		"features":       K,
		"stats_restored": restored,
		"duration":       time.Since(start).String(),
	}).Info("Dataset built")

	return bundle, nil
}
