package experiment

import (
	"slices"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/dataset"
	"github.com/wonny/epo/internal/panel"
	"github.com/wonny/epo/internal/portfolio"
)

// Columns returns the value columns to load: features then cost
func (c *Config) Columns() []string {
	cols := slices.Clone(c.Data.FeatureColumns)
	if !slices.Contains(cols, c.Data.CostColumn) {
		cols = append(cols, c.Data.CostColumn)
	}
	return cols
}

// Query returns the raw-row selection. Call only on a validated config.
func (c *Config) Query() contracts.PanelQuery {
	from, _ := parseTime(c.Data.From)
	to, _ := parseTime(c.Data.To)
	return contracts.PanelQuery{
		Symbols: slices.Clone(c.Data.Symbols),
		From:    from,
		To:      to,
		Columns: c.Columns(),
	}
}

// PipelineConfig returns the align → scale → pivot settings
func (c *Config) PipelineConfig() panel.PipelineConfig {
	fill := panel.FillPolicy{Method: panel.FillForward, Value: c.Alignment.FillValue}
	if c.Alignment.FillMethod == "none" {
		fill.Method = panel.FillNone
	}

	cfg := panel.PipelineConfig{
		Fill:           fill,
		FeatureMin:     c.Scaling.FeatureMin,
		FeatureMax:     c.Scaling.FeatureMax,
		CostColumn:     c.Data.CostColumn,
		FeatureColumns: slices.Clone(c.Data.FeatureColumns),
	}
	if len(c.Scaling.TargetColumns) > 0 {
		cfg.ScaleColumns = slices.Clone(c.Scaling.TargetColumns)
	}
	if c.Data.TrainEnd != "" {
		cfg.TrainEnd, _ = parseTime(c.Data.TrainEnd)
	}
	return cfg
}

// RiskLimits returns the scalar model limits
func (c *Config) RiskLimits() portfolio.RiskLimits {
	return portfolio.RiskLimits{
		RiskAbs:   c.Model.RiskAbs,
		SingleAbs: c.Model.SingleAbs,
		L1Abs:     c.Model.L1Abs,
		SigmaAbs:  c.Model.SigmaAbs,
	}
}

// BuildOptions returns the model builder options
func (c *Config) BuildOptions() portfolio.BuildOptions {
	return portfolio.BuildOptions{
		Maximize:   c.Model.Sense == "maximize",
		RiskLimits: c.Model.RiskLimits,
	}
}

// BuildConfig returns the dataset build settings; the scaler cache is keyed by ScalerHash
func (c *Config) BuildConfig() (dataset.BuildConfig, error) {
	key, err := ScalerHash(c)
	if err != nil {
		return dataset.BuildConfig{}, err
	}
	return dataset.BuildConfig{
		Query:    c.Query(),
		Pipeline: c.PipelineConfig(),
		Seed:     c.Model.Seed,
		Limits:   c.RiskLimits(),
		StatsKey: key,
	}, nil
}

// PrecomputeConfig returns the precompute batching settings
func (c *Config) PrecomputeConfig() dataset.PrecomputeConfig {
	cfg := dataset.DefaultPrecomputeConfig()
	cfg.BatchSize = c.Precompute.BatchSize
	if c.Precompute.Workers > 0 {
		cfg.Workers = c.Precompute.Workers
	}
	return cfg
}
