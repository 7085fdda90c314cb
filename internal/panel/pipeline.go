package panel

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/pkg/logger"
)

// PipelineConfig configures align → scale → pivot
type PipelineConfig struct {
	Fill           FillPolicy
	FeatureMin     float64
	FeatureMax     float64
	ScaleColumns   []string // nil = FeatureColumns
	CostColumn     string
	FeatureColumns []string
	TrainEnd       time.Time // scaler fits on rows strictly before TrainEnd; zero = all rows
}

// Pipeline composes Aligner, GroupScaler and Pivoter
// ⭐ SSOT: raw panel → tensor bundle 변환은 여기서만
type Pipeline struct {
	cfg     PipelineConfig
	aligner *Aligner
	scaler  *GroupScaler
	pivoter *Pivoter
	logger  *logger.Logger
}

// NewPipeline creates a pipeline with an unfitted scaler
func NewPipeline(cfg PipelineConfig, log *logger.Logger) *Pipeline {
	log = logger.OrNop(log)
	scaleColumns := cfg.ScaleColumns
	if scaleColumns == nil {
		scaleColumns = slices.Clone(cfg.FeatureColumns)
	}
	return &Pipeline{
		cfg:     cfg,
		aligner: NewAligner(cfg.Fill, log),
		scaler:  NewGroupScaler(cfg.FeatureMin, cfg.FeatureMax, scaleColumns),
		pivoter: NewPivoter(log),
		logger:  log,
	}
}

// WithScaler replaces the scaler, typically with one restored from a previous fit.
// A fitted scaler is reused as-is; Build never refits it.
func (p *Pipeline) WithScaler(s *GroupScaler) *Pipeline {
	p.scaler = s
	return p
}

// Scaler returns the pipeline's scaler
func (p *Pipeline) Scaler() *GroupScaler {
	return p.scaler
}

// Build runs the full pipeline on raw rows
func (p *Pipeline) Build(ctx context.Context, raw *contracts.Panel) (*contracts.TensorBundle, error) {
	aligned := p.aligner.Align(raw)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !p.scaler.Fitted() {
		train := aligned
		if !p.cfg.TrainEnd.IsZero() {
			end := p.cfg.TrainEnd
			train = aligned.Filter(func(r contracts.Row) bool { return r.Time.Before(end) })
		}
		if err := p.scaler.Fit(train); err != nil {
			return nil, fmt.Errorf("fit scaler: %w", err)
		}
		p.logger.WithFields(map[string]interface{}{
			"train_rows": train.Len(),
			"columns":    p.scaler.TargetColumns(),
		}).Info("Scaler fitted")
	}

	scaled, err := p.scaler.Transform(aligned)
	if err != nil {
		return nil, fmt.Errorf("transform panel: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bundle, err := p.pivoter.Pivot(scaled, p.cfg.CostColumn, p.cfg.FeatureColumns)
	if err != nil {
		return nil, fmt.Errorf("pivot panel: %w", err)
	}
	return bundle, nil
}
