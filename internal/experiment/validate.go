package experiment

import (
	"fmt"
	"slices"
	"time"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks required constraints (fatal)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ExperimentID == "" {
		return ValidationError{"meta.experiment_id", "required"}
	}

	// === Data ===
	from, err := parseTime(cfg.Data.From)
	if err != nil {
		return ValidationError{"data.from", err.Error()}
	}
	to, err := parseTime(cfg.Data.To)
	if err != nil {
		return ValidationError{"data.to", err.Error()}
	}
	if !from.Before(to) {
		return ValidationError{"data", "from must be before to"}
	}
	if cfg.Data.TrainEnd != "" {
		trainEnd, err := parseTime(cfg.Data.TrainEnd)
		if err != nil {
			return ValidationError{"data.train_end", err.Error()}
		}
		if !trainEnd.After(from) || trainEnd.After(to) {
			return ValidationError{"data.train_end", "must be in (from, to]"}
		}
	}
	if cfg.Data.CostColumn == "" {
		return ValidationError{"data.cost_column", "required"}
	}
	if len(cfg.Data.FeatureColumns) == 0 {
		return ValidationError{"data.feature_columns", "must not be empty"}
	}
	if dup := firstDuplicate(cfg.Data.FeatureColumns); dup != "" {
		return ValidationError{"data.feature_columns", fmt.Sprintf("duplicate column %q", dup)}
	}
	if dup := firstDuplicate(cfg.Data.Symbols); dup != "" {
		return ValidationError{"data.symbols", fmt.Sprintf("duplicate symbol %q", dup)}
	}

	// === Alignment ===
	switch cfg.Alignment.FillMethod {
	case "ffill", "none":
	default:
		return ValidationError{"alignment.fill_method", "must be ffill or none"}
	}

	// === Scaling ===
	if cfg.Scaling.FeatureMin >= cfg.Scaling.FeatureMax {
		return ValidationError{"scaling", "feature_min must be < feature_max"}
	}
	for i, col := range cfg.Scaling.TargetColumns {
		if col != cfg.Data.CostColumn && !slices.Contains(cfg.Data.FeatureColumns, col) {
			return ValidationError{fmt.Sprintf("scaling.target_columns[%d]", i), fmt.Sprintf("unknown column %q", col)}
		}
	}

	// === Model ===
	switch cfg.Model.Sense {
	case "maximize", "minimize":
	default:
		return ValidationError{"model.sense", "must be maximize or minimize"}
	}
	if cfg.Model.RiskAbs < 0 {
		return ValidationError{"model.risk_abs", "must be >= 0"}
	}
	if cfg.Model.SingleAbs < 0 {
		return ValidationError{"model.single_abs", "must be >= 0"}
	}
	if cfg.Model.L1Abs < 0 {
		return ValidationError{"model.l1_abs", "must be >= 0"}
	}
	if cfg.Model.SigmaAbs < 0 {
		return ValidationError{"model.sigma_abs", "must be >= 0"}
	}

	// === Precompute ===
	if cfg.Precompute.Lookback <= 0 {
		return ValidationError{"precompute.lookback", "must be > 0"}
	}
	if cfg.Precompute.Padding != "zero" {
		return ValidationError{"precompute.padding", "only zero padding is supported"}
	}
	if cfg.Precompute.BatchSize <= 0 {
		return ValidationError{"precompute.batch_size", "must be > 0"}
	}
	if cfg.Precompute.Workers < 0 {
		return ValidationError{"precompute.workers", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// train_end 없음 → 전체 구간으로 스케일러 학습
	if cfg.Data.TrainEnd == "" {
		warnings = append(warnings, Warning{
			Code:    "NO_TRAIN_SPLIT",
			Message: "train_end not set: scaler statistics include evaluation rows",
		})
	}

	if slices.Contains(cfg.Scaling.TargetColumns, cfg.Data.CostColumn) {
		warnings = append(warnings, Warning{
			Code:    "SCALED_COST",
			Message: "cost column is scaled: objective values are no longer in return units",
		})
	}

	if cfg.Model.RiskLimits && cfg.Model.SingleAbs*float64(len(cfg.Data.Symbols)) < 1 && len(cfg.Data.Symbols) > 0 {
		warnings = append(warnings, Warning{
			Code:    "SINGLE_LIMIT_INFEASIBLE",
			Message: fmt.Sprintf("single_abs %.3f × %d symbols < budget 1: every solve will be infeasible", cfg.Model.SingleAbs, len(cfg.Data.Symbols)),
		})
	}

	return warnings
}

// === Helper Functions ===

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC3339")
	}
	return t.UTC(), nil
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
