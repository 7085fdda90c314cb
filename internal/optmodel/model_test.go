package optmodel

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/solver"
	"github.com/wonny/epo/pkg/logger"
)

func assetNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("A%02d", i)
	}
	return names
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func budgetModel(t *testing.T, n int, op solver.Op, sense solver.Sense) *Model {
	t.Helper()
	m, err := New(solver.NewSimplexBackend(0), assetNames(n), Options{
		Sense: sense,
		Upper: filled(n, 1e6),
		Constraints: []solver.Constraint{
			{Name: "budget_0", Coefs: filled(n, 1), Op: op, RHS: 1},
		},
	}, nil)
	require.NoError(t, err)
	return m
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(nil, assetNames(3), Options{}, nil)
	assert.ErrorIs(t, err, ErrSolverUnavailable)

	_, err = NewFromRegistry("cplex", assetNames(3), Options{}, nil)
	assert.ErrorIs(t, err, ErrSolverUnavailable)
	assert.ErrorIs(t, err, solver.ErrBackendNotFound)
}

func TestNewFromRegistry(t *testing.T) {
	m, err := NewFromRegistry(solver.SimplexName, assetNames(4), Options{Sense: solver.Maximize}, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, m.NumCost())
	assert.Equal(t, solver.Maximize, m.Sense())
	assert.Equal(t, solver.SimplexName, m.Backend())
}

func TestNew_ValidatesStructure(t *testing.T) {
	var verr ValidationError

	_, err := New(solver.NewSimplexBackend(0), assetNames(3), Options{Lower: []float64{0}}, nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "lower", verr.Field)

	_, err = New(solver.NewSimplexBackend(0), assetNames(3), Options{
		Constraints: []solver.Constraint{{Name: "budget_0", Coefs: []float64{1, 1}, Op: solver.Equal, RHS: 1}},
	}, nil)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 3, verr.Want)
	assert.Equal(t, 2, verr.Got)
}

func TestSetObjective_LengthMismatch(t *testing.T) {
	m := budgetModel(t, 3, solver.Equal, solver.Minimize)

	err := m.SetObjective([]float64{1, 2})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "objective", verr.Field)
	assert.Equal(t, 3, verr.Want)
	assert.Equal(t, 2, verr.Got)
}

func TestSetObjectiveOf_CoercesIntegers(t *testing.T) {
	m := budgetModel(t, 3, solver.Equal, solver.Minimize)
	require.NoError(t, SetObjectiveOf(m, []int{3, 1, 2}))

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, sol.X, 1e-9)
	assert.InDelta(t, 1.0, sol.Objective, 1e-9)
}

func TestSolve_ObjectiveCanBeReset(t *testing.T) {
	m := budgetModel(t, 3, solver.Equal, solver.Minimize)

	require.NoError(t, m.SetObjective([]float64{1, 2, 3}))
	sol, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sol.X[0], 1e-9)

	require.NoError(t, m.SetObjective([]float64{3, 2, 1}))
	sol, err = m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sol.X[2], 1e-9)
	assert.True(t, sol.Reliable())
}

// 13 assets, budget sum <= 1: a child capped at 0.5 leaves the parent at 1
func TestAddConstr_ChildEnforcesCapParentUnchanged(t *testing.T) {
	const n = 13
	m := budgetModel(t, n, solver.LessEq, solver.Maximize)
	cost := make([]float64, n)
	for i := range cost {
		cost[i] = float64(i + 1)
	}
	require.NoError(t, m.SetObjective(cost))

	before, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, before.Sum(), 1e-9)

	child, err := m.AddConstr(filled(n, 1), 0.5)
	require.NoError(t, err)
	require.NotSame(t, m, child)

	sol, err := child.Solve()
	require.NoError(t, err)
	assert.LessOrEqual(t, sol.Sum(), 0.5+1e-9)
	assert.InDelta(t, 0.5*n, sol.Objective, 1e-9)

	after, err := m.Solve()
	require.NoError(t, err)
	assert.Equal(t, before.X, after.X)
	assert.Equal(t, before.Objective, after.Objective)
	assert.Len(t, m.Constraints(), 1)
	assert.Len(t, child.Constraints(), 2)
}

// budget sum = 1 with sum <= 0.5 cut: child is infeasible, parent still solves at sum = 1
func TestAddConstr_InfeasibleChildReportsIIS(t *testing.T) {
	const n = 13
	var buf bytes.Buffer
	m, err := New(solver.NewSimplexBackend(0), assetNames(n), Options{
		Upper: filled(n, 1e6),
		Constraints: []solver.Constraint{
			{Name: "budget_0", Coefs: filled(n, 1), Op: solver.Equal, RHS: 1},
			{Name: "single_A00", Coefs: append([]float64{1}, make([]float64, n-1)...), Op: solver.LessEq, RHS: 0.9},
		},
	}, logger.NewWithWriter(&buf, "debug"))
	require.NoError(t, err)
	require.NoError(t, m.SetObjective(filled(n, 1)))

	child, err := m.AddConstr(filled(n, 1), 0.5)
	require.NoError(t, err)

	sol, err := child.Solve()
	assert.Nil(t, sol)
	var ierr InfeasibilityError
	require.True(t, errors.As(err, &ierr))
	assert.ElementsMatch(t, []string{"budget_0", "cut_1"}, ierr.Constraints)
	assert.Contains(t, buf.String(), "Model is infeasible")

	parent, err := m.Solve()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, parent.Sum(), 1e-9)

	// the infeasible model can still be re-objectived
	require.NoError(t, child.SetObjective(filled(n, 2)))
	_, err = child.Solve()
	assert.True(t, errors.As(err, &ierr))
}

func TestSolve_MultiRowBudget(t *testing.T) {
	const n = 3
	newModel := func(t *testing.T, rows ...solver.Constraint) *Model {
		t.Helper()
		m, err := New(solver.NewSimplexBackend(0), assetNames(n), Options{
			Sense:       solver.Maximize,
			Upper:       filled(n, 1e6),
			Constraints: rows,
		}, nil)
		require.NoError(t, err)
		require.NoError(t, m.SetObjective([]float64{1, 2, 3}))
		return m
	}

	t.Run("redundant rows solve", func(t *testing.T) {
		m := newModel(t,
			solver.Constraint{Name: "budget_0", Coefs: filled(n, 1), Op: solver.Equal, RHS: 1},
			solver.Constraint{Name: "budget_1", Coefs: filled(n, 1), Op: solver.Equal, RHS: 1},
		)
		sol, err := m.Solve()
		require.NoError(t, err)
		assert.Equal(t, contracts.StatusOptimal, sol.Status)
		assert.InDeltaSlice(t, []float64{0, 0, 1}, sol.X, 1e-9)
		assert.InDelta(t, 3.0, sol.Objective, 1e-9)
	})

	t.Run("contradictory rows report both", func(t *testing.T) {
		m := newModel(t,
			solver.Constraint{Name: "budget_0", Coefs: filled(n, 1), Op: solver.Equal, RHS: 1},
			solver.Constraint{Name: "budget_1", Coefs: filled(n, 1), Op: solver.Equal, RHS: 0.5},
		)
		sol, err := m.Solve()
		assert.Nil(t, sol)
		var ierr InfeasibilityError
		require.True(t, errors.As(err, &ierr))
		assert.ElementsMatch(t, []string{"budget_0", "budget_1"}, ierr.Constraints)
	})
}

func TestSolve_OverdeterminedSingleAsset(t *testing.T) {
	m, err := New(solver.NewSimplexBackend(0), assetNames(1), Options{
		Constraints: []solver.Constraint{
			{Name: "fix_0", Coefs: []float64{1}, Op: solver.Equal, RHS: 1},
			{Name: "fix_1", Coefs: []float64{1}, Op: solver.Equal, RHS: 2},
		},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, m.SetObjective([]float64{1}))

	_, err = m.Solve()
	var ierr InfeasibilityError
	require.True(t, errors.As(err, &ierr))
	assert.ElementsMatch(t, []string{"fix_0", "fix_1"}, ierr.Constraints)
}

func TestAddConstr_LengthMismatch(t *testing.T) {
	m := budgetModel(t, 3, solver.Equal, solver.Minimize)

	_, err := m.AddConstr([]float64{1, 1}, 0.5)
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, m.Constraints(), 1)
}

func TestAddConstr_NamesAreSequentialPerLineage(t *testing.T) {
	m := budgetModel(t, 2, solver.Equal, solver.Minimize)

	a, err := m.AddConstr([]float64{1, 0}, 0.8)
	require.NoError(t, err)
	b, err := a.AddConstr([]float64{0, 1}, 0.8)
	require.NoError(t, err)
	sibling, err := m.AddConstr([]float64{0, 1}, 0.3)
	require.NoError(t, err)

	names := func(mm *Model) []string {
		var out []string
		for _, c := range mm.Constraints() {
			out = append(out, c.Name)
		}
		return out
	}
	assert.Equal(t, []string{"budget_0", "cut_1", "cut_2"}, names(b))
	assert.Equal(t, []string{"budget_0", "cut_1"}, names(sibling))
	assert.Equal(t, solver.LessEq, b.Constraints()[2].Op)
}

func TestSolve_Unbounded(t *testing.T) {
	var buf bytes.Buffer
	m, err := New(solver.NewSimplexBackend(0), assetNames(2), Options{
		Sense: solver.Maximize,
		Constraints: []solver.Constraint{
			{Name: "floor", Coefs: []float64{1, 1}, Op: solver.GreaterEq, RHS: 1},
		},
	}, logger.NewWithWriter(&buf, "warn"))
	require.NoError(t, err)
	require.NoError(t, m.SetObjective([]float64{1, 1}))

	sol, err := m.Solve()
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusUnbounded, sol.Status)
	assert.False(t, sol.Reliable())
	assert.True(t, math.IsInf(sol.Objective, 1))
	assert.Len(t, sol.X, 2)
	assert.Contains(t, buf.String(), "unbounded")
}

func TestClone_ConcurrentVariants(t *testing.T) {
	const n = 5
	base := budgetModel(t, n, solver.LessEq, solver.Maximize)
	require.NoError(t, base.SetObjective(filled(n, 1)))

	caps := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	objectives := make([]float64, len(caps))
	errs := make([]error, len(caps))

	var wg sync.WaitGroup
	for i, c := range caps {
		wg.Add(1)
		go func(i int, c float64) {
			defer wg.Done()
			child, err := base.AddConstr(filled(n, 1), c)
			if err != nil {
				errs[i] = err
				return
			}
			sol, err := child.Solve()
			if err != nil {
				errs[i] = err
				return
			}
			objectives[i] = sol.Objective
		}(i, c)
	}
	wg.Wait()

	for i, c := range caps {
		require.NoError(t, errs[i])
		assert.InDelta(t, c, objectives[i], 1e-9)
	}
	assert.Len(t, base.Constraints(), 1)
}

func TestModel_String(t *testing.T) {
	m := budgetModel(t, 3, solver.Equal, solver.Minimize)
	assert.Equal(t, "optModel(simplex, 3 vars, 1 constrs, minimize)", m.String())
}
