package portfolio

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/epo/internal/contracts"
)

const (
	// DefaultUpperBound is the per-asset upper bound of the budget model
	DefaultUpperBound = 1e6

	covarianceJitter = 1e-3
)

// NewStructuralParams generates the fixed model parameters for n assets from seed.
// The same seed always yields the same covariance and risk factor.
func NewStructuralParams(n int, seed int64, limits RiskLimits) (contracts.StructuralParams, error) {
	if n <= 0 {
		return contracts.StructuralParams{}, fmt.Errorf("structural params: need at least one asset, got %d", n)
	}

	rng := rand.New(rand.NewSource(seed))

	// Σ = MᵀM + εI is positive definite
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.Set(i, j, rng.NormFloat64())
		}
	}
	var cov mat.Dense
	cov.Mul(m.T(), m)

	covariance := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			covariance[i*n+j] = cov.At(i, j)
		}
		covariance[i*n+i] += covarianceJitter
	}

	riskFactor := make([]float64, n)
	for i := range riskFactor {
		riskFactor[i] = rng.NormFloat64()
	}

	budget := make([]float64, n)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := 0; i < n; i++ {
		budget[i] = 1
		upper[i] = DefaultUpperBound
	}

	return contracts.StructuralParams{
		Seed:       seed,
		N:          n,
		BudgetA:    [][]float64{budget},
		BudgetB:    []float64{1},
		Lower:      lower,
		Upper:      upper,
		Covariance: covariance,
		RiskFactor: riskFactor,
		RiskAbs:    limits.RiskAbs,
		SingleAbs:  limits.SingleAbs,
		L1Abs:      limits.L1Abs,
		SigmaAbs:   limits.SigmaAbs,
	}, nil
}
