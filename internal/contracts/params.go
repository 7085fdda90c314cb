package contracts

// StructuralParams are the fixed parameters of the decision model that ship with a tensor bundle.
// They are generated once from Seed and passed by value; nothing regenerates them implicitly.
type StructuralParams struct {
	Seed       int64       `json:"seed"`
	N          int         `json:"n"`
	BudgetA    [][]float64 `json:"budget_a"` // equality rows, each of length N
	BudgetB    []float64   `json:"budget_b"`
	Lower      []float64   `json:"lower"`
	Upper      []float64   `json:"upper"`
	Covariance []float64   `json:"covariance"` // row-major N×N, positive definite
	RiskFactor []float64   `json:"risk_factor"`
	RiskAbs    float64     `json:"risk_abs"`
	SingleAbs  float64     `json:"single_abs"`
	L1Abs      float64     `json:"l1_abs"`
	SigmaAbs   float64     `json:"sigma_abs"`
}

// CovarianceAt returns Σ[i,j]
func (p *StructuralParams) CovarianceAt(i, j int) float64 {
	return p.Covariance[i*p.N+j]
}
