package portfolio

// RiskLimits are the scalar limits of the market-neutral model
// ⭐ SSOT: 리스크 한도는 여기서만
type RiskLimits struct {
	RiskAbs   float64 // |f·x| 상한
	SingleAbs float64 // 종목당 최대 비중
	L1Abs     float64 // 총 비중 상한 (하한이 모두 0 이상일 때)
	SigmaAbs  float64 // xᵀΣx 상한 (진단용, 선형 모델에서는 강제하지 않음)
}

// DefaultRiskLimits returns the default limits
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		RiskAbs:   1.5,
		SingleAbs: 0.1,
		L1Abs:     1.0,
		SigmaAbs:  2.5,
	}
}

// BuildOptions controls which structural rows BuildModel adds
type BuildOptions struct {
	Maximize   bool
	RiskLimits bool // risk_upper/risk_lower, single_*, l1
}

// DefaultBuildOptions maximizes predicted return under budget and bounds only
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Maximize:   true,
		RiskLimits: false,
	}
}
