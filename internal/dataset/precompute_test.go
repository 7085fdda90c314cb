package dataset

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/optmodel"
	"github.com/wonny/epo/internal/portfolio"
	"github.com/wonny/epo/internal/solver"
)

// rotatingBundle makes asset t%N the most attractive at time t
func rotatingBundle(T, N int) *contracts.TensorBundle {
	times := make([]time.Time, T)
	for i := range times {
		times[i] = at(i)
	}
	symbols := make([]string, N)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%d", i)
	}
	b := contracts.NewTensorBundle(times, symbols, []string{"close"}, "return_30min")
	for t := 0; t < T; t++ {
		b.SetCost(t, t%N, 0.01*float64(t+1))
	}
	return b
}

func budgetModel(t *testing.T, symbols []string) *optmodel.Model {
	t.Helper()
	params, err := portfolio.NewStructuralParams(len(symbols), 1, portfolio.DefaultRiskLimits())
	require.NoError(t, err)
	m, err := portfolio.BuildModel(solver.NewSimplexBackend(0), symbols, params, portfolio.DefaultBuildOptions(), nil)
	require.NoError(t, err)
	return m
}

func TestPrecompute_SolvesEveryRow(t *testing.T) {
	b := rotatingBundle(11, 3)
	m := budgetModel(t, b.Symbols)

	set, err := Precompute(context.Background(), m, b, PrecomputeConfig{BatchSize: 2, Workers: 3}, nil)
	require.NoError(t, err)

	for i := 0; i < 11; i++ {
		row := set.Row(i)
		assert.InDelta(t, 1.0, row[i%3], 1e-9, "row %d", i)
		assert.InDelta(t, 0.01*float64(i+1), set.Objectives[i], 1e-9)
		assert.Equal(t, contracts.StatusOptimal, set.Statuses[i])
	}
	assert.Len(t, m.Constraints(), 1)
}

func TestPrecompute_BatchSizeDoesNotChangeResults(t *testing.T) {
	b := rotatingBundle(9, 4)
	m := budgetModel(t, b.Symbols)

	serial, err := Precompute(context.Background(), m, b, PrecomputeConfig{BatchSize: 100, Workers: 1}, nil)
	require.NoError(t, err)
	parallel, err := Precompute(context.Background(), m, b, PrecomputeConfig{BatchSize: 1, Workers: 4}, nil)
	require.NoError(t, err)

	assert.Equal(t, serial.X, parallel.X)
	assert.Equal(t, serial.Objectives, parallel.Objectives)
}

func TestPrecompute_InfeasibleModelFails(t *testing.T) {
	b := rotatingBundle(4, 2)
	m, err := budgetModel(t, b.Symbols).AddConstr([]float64{1, 1}, 0.5)
	require.NoError(t, err)

	_, err = Precompute(context.Background(), m, b, PrecomputeConfig{BatchSize: 2, Workers: 2}, nil)
	var ierr optmodel.InfeasibilityError
	assert.True(t, errors.As(err, &ierr))
}

func TestPrecompute_SizeMismatch(t *testing.T) {
	b := rotatingBundle(4, 2)
	m := budgetModel(t, []string{"A", "B", "C"})

	_, err := Precompute(context.Background(), m, b, DefaultPrecomputeConfig(), nil)
	var verr optmodel.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestPrecompute_Cancelled(t *testing.T) {
	b := rotatingBundle(4, 2)
	m := budgetModel(t, b.Symbols)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Precompute(ctx, m, b, PrecomputeConfig{BatchSize: 1, Workers: 1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
