package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/epo/internal/contracts"
)

// RiskReport describes a decision vector against the structural limits
type RiskReport struct {
	Variance     float64 `json:"variance"` // xᵀΣx
	FactorExpo   float64 `json:"factor_exposure"`
	MaxWeight    float64 `json:"max_weight"`
	WithinSigma  bool    `json:"within_sigma"`
	WithinFactor bool    `json:"within_factor"`
}

// Evaluate computes the risk report of x
func Evaluate(params contracts.StructuralParams, x []float64) (RiskReport, error) {
	n := params.N
	if len(x) != n {
		return RiskReport{}, fmt.Errorf("evaluate: got %d weights for %d assets", len(x), n)
	}
	if len(params.Covariance) != n*n {
		return RiskReport{}, fmt.Errorf("evaluate: covariance has %d entries, want %d", len(params.Covariance), n*n)
	}

	cov := mat.NewDense(n, n, params.Covariance)
	w := mat.NewVecDense(n, x)
	variance := mat.Inner(w, cov, w)

	expo := 0.0
	if len(params.RiskFactor) == n {
		expo = mat.Dot(mat.NewVecDense(n, params.RiskFactor), w)
	}

	maxW := 0.0
	for i, v := range x {
		if i == 0 || v > maxW {
			maxW = v
		}
	}

	return RiskReport{
		Variance:     variance,
		FactorExpo:   expo,
		MaxWeight:    maxW,
		WithinSigma:  variance <= params.SigmaAbs,
		WithinFactor: expo <= params.RiskAbs && -expo <= params.RiskAbs,
	}, nil
}
