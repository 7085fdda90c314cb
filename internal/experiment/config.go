package experiment

// Config는 데이터셋 생성 + 결정 모델 실험의 전체 설정
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Data       Data       `yaml:"data" json:"data"`
	Alignment  Alignment  `yaml:"alignment" json:"alignment"`
	Scaling    Scaling    `yaml:"scaling" json:"scaling"`
	Model      Model      `yaml:"model" json:"model"`
	Precompute Precompute `yaml:"precompute" json:"precompute"`
}

// Meta 메타 정보
type Meta struct {
	ExperimentID string `yaml:"experiment_id" json:"experiment_id"`
	Version      string `yaml:"version" json:"version"`
	Description  string `yaml:"description" json:"description"`
}

// Data selects the raw rows and the columns of the bundle
type Data struct {
	Symbols        []string `yaml:"symbols" json:"symbols"` // empty = all
	From           string   `yaml:"from" json:"from"`       // RFC3339
	To             string   `yaml:"to" json:"to"`           // RFC3339
	TrainEnd       string   `yaml:"train_end" json:"train_end"`
	CostColumn     string   `yaml:"cost_column" json:"cost_column"`
	FeatureColumns []string `yaml:"feature_columns" json:"feature_columns"`
}

// Alignment fill policy
type Alignment struct {
	FillMethod string  `yaml:"fill_method" json:"fill_method"` // "ffill" | "none"
	FillValue  float64 `yaml:"fill_value" json:"fill_value"`
}

// Scaling per-symbol min/max normalization
type Scaling struct {
	FeatureMin    float64  `yaml:"feature_min" json:"feature_min"`
	FeatureMax    float64  `yaml:"feature_max" json:"feature_max"`
	TargetColumns []string `yaml:"target_columns" json:"target_columns"` // empty = feature_columns
}

// Model structural parameters of the decision model
type Model struct {
	Seed       int64   `yaml:"seed" json:"seed"`
	Sense      string  `yaml:"sense" json:"sense"` // "maximize" | "minimize"
	RiskLimits bool    `yaml:"risk_limits" json:"risk_limits"`
	RiskAbs    float64 `yaml:"risk_abs" json:"risk_abs"`
	SingleAbs  float64 `yaml:"single_abs" json:"single_abs"`
	L1Abs      float64 `yaml:"l1_abs" json:"l1_abs"`
	SigmaAbs   float64 `yaml:"sigma_abs" json:"sigma_abs"`
}

// Precompute optimal-solution precompute and sample windows
type Precompute struct {
	Lookback  int    `yaml:"lookback" json:"lookback"`
	Padding   string `yaml:"padding" json:"padding"` // "zero"
	BatchSize int    `yaml:"batch_size" json:"batch_size"`
	Workers   int    `yaml:"workers" json:"workers"` // 0 = NumCPU
}
