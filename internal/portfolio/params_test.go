package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewStructuralParams_Deterministic(t *testing.T) {
	a, err := NewStructuralParams(13, 42, DefaultRiskLimits())
	require.NoError(t, err)
	b, err := NewStructuralParams(13, 42, DefaultRiskLimits())
	require.NoError(t, err)
	c, err := NewStructuralParams(13, 7, DefaultRiskLimits())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Covariance, c.Covariance)
	assert.NotEqual(t, a.RiskFactor, c.RiskFactor)
}

func TestNewStructuralParams_Shape(t *testing.T) {
	p, err := NewStructuralParams(4, 1, DefaultRiskLimits())
	require.NoError(t, err)

	assert.Equal(t, 4, p.N)
	assert.Equal(t, [][]float64{{1, 1, 1, 1}}, p.BudgetA)
	assert.Equal(t, []float64{1}, p.BudgetB)
	assert.Equal(t, []float64{0, 0, 0, 0}, p.Lower)
	assert.Equal(t, []float64{DefaultUpperBound, DefaultUpperBound, DefaultUpperBound, DefaultUpperBound}, p.Upper)
	assert.Len(t, p.Covariance, 16)
	assert.Len(t, p.RiskFactor, 4)
	assert.Equal(t, 1.5, p.RiskAbs)
	assert.Equal(t, 0.1, p.SingleAbs)
	assert.Equal(t, 1.0, p.L1Abs)
	assert.Equal(t, 2.5, p.SigmaAbs)
}

func TestNewStructuralParams_CovariancePositiveDefinite(t *testing.T) {
	p, err := NewStructuralParams(6, 99, DefaultRiskLimits())
	require.NoError(t, err)

	for i := 0; i < p.N; i++ {
		for j := 0; j < p.N; j++ {
			assert.InDelta(t, p.CovarianceAt(i, j), p.CovarianceAt(j, i), 1e-12)
		}
	}

	sym := mat.NewSymDense(p.N, append([]float64(nil), p.Covariance...))
	var chol mat.Cholesky
	assert.True(t, chol.Factorize(sym))
}

func TestNewStructuralParams_RejectsEmpty(t *testing.T) {
	_, err := NewStructuralParams(0, 1, DefaultRiskLimits())
	assert.Error(t, err)
}
