package solver

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/wonny/epo/internal/contracts"
)

// SimplexName is the registry name of the gonum simplex backend
const SimplexName = "simplex"

// DefaultTolerance is used when a non-positive tolerance is configured
const DefaultTolerance = 1e-10

// rankTol is the relative singular-value cutoff used to find dependent equality rows
const rankTol = 1e-9

func init() {
	Register(NewSimplexBackend(DefaultTolerance))
}

// SimplexBackend solves linear programs with gonum's lp.Simplex
type SimplexBackend struct {
	tol float64
}

// NewSimplexBackend creates a simplex backend with the given pivot tolerance
func NewSimplexBackend(tol float64) *SimplexBackend {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &SimplexBackend{tol: tol}
}

// Name implements Backend
func (b *SimplexBackend) Name() string {
	return SimplexName
}

// NewSession implements Backend
func (b *SimplexBackend) NewSession(p Problem) (Session, error) {
	if p.NumVars <= 0 {
		return nil, fmt.Errorf("solver: need at least one variable, got %d", p.NumVars)
	}
	if len(p.Lower) != p.NumVars || len(p.Upper) != p.NumVars {
		return nil, fmt.Errorf("solver: bounds sized %d/%d for %d variables", len(p.Lower), len(p.Upper), p.NumVars)
	}
	for i := range p.Lower {
		if math.IsInf(p.Lower[i], 0) || math.IsNaN(p.Lower[i]) {
			return nil, fmt.Errorf("solver: lower bound of x[%d] must be finite", i)
		}
		if p.Upper[i] < p.Lower[i] {
			return nil, fmt.Errorf("solver: x[%d] has lower %g > upper %g", i, p.Lower[i], p.Upper[i])
		}
	}
	sense := p.Sense
	if sense == "" {
		sense = Minimize
	}

	return &simplexSession{
		tol:       b.tol,
		sense:     sense,
		lower:     slices.Clone(p.Lower),
		upper:     slices.Clone(p.Upper),
		objective: make([]float64, p.NumVars),
	}, nil
}

type simplexSession struct {
	tol         float64
	sense       Sense
	lower       []float64
	upper       []float64
	objective   []float64
	constraints []Constraint
}

func (s *simplexSession) NumVars() int { return len(s.lower) }

func (s *simplexSession) Sense() Sense { return s.sense }

func (s *simplexSession) SetObjective(c []float64) {
	s.objective = slices.Clone(c)
}

func (s *simplexSession) AddConstraint(c Constraint) {
	s.constraints = append(s.constraints, c.Clone())
}

func (s *simplexSession) Constraints() []Constraint {
	out := make([]Constraint, len(s.constraints))
	for i, c := range s.constraints {
		out[i] = c.Clone()
	}
	return out
}

func (s *simplexSession) Copy() Session {
	return &simplexSession{
		tol:         s.tol,
		sense:       s.sense,
		lower:       slices.Clone(s.lower),
		upper:       slices.Clone(s.upper),
		objective:   slices.Clone(s.objective),
		constraints: s.Constraints(),
	}
}

func (s *simplexSession) Optimize() (Result, error) {
	c := slices.Clone(s.objective)
	if s.sense == Maximize {
		floats.Scale(-1, c)
	}

	res, err := s.solve(c, s.constraints)
	if err != nil {
		return Result{}, err
	}

	switch res.Status {
	case contracts.StatusOptimal:
		res.Objective = floats.Dot(s.objective, res.X)
	case contracts.StatusUnbounded:
		res.Objective = math.Inf(-1)
		if s.sense == Maximize {
			res.Objective = math.Inf(1)
		}
	}
	return res, nil
}

// ComputeIIS runs a deletion filter over the constraints; bounds always stay in the model.
func (s *simplexSession) ComputeIIS() ([]string, error) {
	zero := make([]float64, s.NumVars())
	infeasible := func(cons []Constraint) (bool, error) {
		res, err := s.solve(zero, cons)
		if err != nil {
			return false, err
		}
		return res.Status == contracts.StatusInfeasible, nil
	}

	ok, err := infeasible(s.constraints)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInfeasible
	}

	set := slices.Clone(s.constraints)
	for i := 0; i < len(set); {
		trial := slices.Delete(slices.Clone(set), i, i+1)
		stillInfeasible, err := infeasible(trial)
		if err != nil {
			return nil, err
		}
		if stillInfeasible {
			set = trial
			continue
		}
		i++
	}

	names := make([]string, len(set))
	for i, c := range set {
		names[i] = c.Name
	}
	return names, nil
}

// stdRow is one row of the shifted problem: coefs · y + slack = rhs, with y = x - lower
type stdRow struct {
	coefs []float64
	slack float64 // 0 for equalities, +1 for <=, -1 for >=
	rhs   float64
}

// solve minimizes c · x subject to cons and the session bounds
func (s *simplexSession) solve(c []float64, cons []Constraint) (Result, error) {
	n := s.NumVars()
	infeasible := Result{Status: contracts.StatusInfeasible}

	rows := make([]stdRow, 0, len(cons)+n)
	for _, con := range cons {
		if len(con.Coefs) != n {
			return Result{}, fmt.Errorf("solver: constraint %q has %d coefficients for %d variables", con.Name, len(con.Coefs), n)
		}
		r := stdRow{coefs: con.Coefs, rhs: con.RHS - floats.Dot(con.Coefs, s.lower)}
		switch con.Op {
		case LessEq:
			r.slack = 1
		case GreaterEq:
			r.slack = -1
		case Equal:
		default:
			return Result{}, fmt.Errorf("solver: constraint %q has unknown op %q", con.Name, con.Op)
		}
		rows = append(rows, r)
	}
	for i := 0; i < n; i++ {
		if math.IsInf(s.upper[i], 1) {
			continue
		}
		e := make([]float64, n)
		e[i] = 1
		rows = append(rows, stdRow{coefs: e, slack: 1, rhs: s.upper[i] - s.lower[i]})
	}

	// rows without variables are checked directly; gonum rejects zero rows
	kept := rows[:0:0]
	for _, r := range rows {
		if !allZero(r.coefs) {
			kept = append(kept, r)
			continue
		}
		satisfied := false
		switch r.slack {
		case 0:
			satisfied = math.Abs(r.rhs) <= s.tol
		case 1:
			satisfied = r.rhs >= -s.tol
		case -1:
			satisfied = r.rhs <= s.tol
		}
		if !satisfied {
			return infeasible, nil
		}
	}
	rows = kept

	// lp.Simplex needs full row rank: implied equalities are dropped, contradictory ones are infeasible
	rows, consistent := independentRows(rows)
	if !consistent {
		return infeasible, nil
	}

	// variables that appear in no row sit at their lower bound, or run off to infinity
	active := make([]int, 0, n)
	for j := 0; j < n; j++ {
		used := false
		for _, r := range rows {
			if r.coefs[j] != 0 {
				used = true
				break
			}
		}
		if used {
			active = append(active, j)
			continue
		}
		if c[j] < 0 {
			return Result{Status: contracts.StatusUnbounded}, nil
		}
	}

	x := slices.Clone(s.lower)
	if len(rows) == 0 {
		return Result{Status: contracts.StatusOptimal, X: x}, nil
	}

	slacks := 0
	for _, r := range rows {
		if r.slack != 0 {
			slacks++
		}
	}

	m, cols := len(rows), len(active)+slacks
	A := mat.NewDense(m, cols, nil)
	b := make([]float64, m)
	cStd := make([]float64, cols)
	for k, j := range active {
		cStd[k] = c[j]
	}

	slackCol := len(active)
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for k, j := range active {
			A.Set(i, k, sign*r.coefs[j])
		}
		if r.slack != 0 {
			A.Set(i, slackCol, sign*r.slack)
			slackCol++
		}
		b[i] = sign * r.rhs
	}

	_, y, err := lp.Simplex(cStd, A, b, s.tol, nil)
	switch {
	case err == nil:
	case errors.Is(err, lp.ErrInfeasible):
		return infeasible, nil
	case errors.Is(err, lp.ErrUnbounded):
		return Result{Status: contracts.StatusUnbounded}, nil
	default:
		return Result{}, fmt.Errorf("simplex: %w", err)
	}

	for k, j := range active {
		x[j] += y[k]
	}
	return Result{Status: contracts.StatusOptimal, X: x}, nil
}

// independentRows keeps every inequality and the equalities that are linearly independent of
// the ones before them. ok is false when an equality contradicts the earlier ones.
func independentRows(rows []stdRow) (out []stdRow, ok bool) {
	out = make([]stdRow, 0, len(rows))
	var basis []stdRow
	for _, r := range rows {
		if r.slack != 0 {
			out = append(out, r)
			continue
		}
		trial := append(slices.Clone(basis), r)
		rankA, rankAb := equalityRanks(trial)
		switch {
		case rankA > len(basis):
			basis = trial
			out = append(out, r)
		case rankAb > rankA:
			return nil, false
		}
	}
	return out, true
}

// equalityRanks returns rank(A) and rank([A|b]) of the given equality rows
func equalityRanks(rows []stdRow) (int, int) {
	n := len(rows[0].coefs)
	a := mat.NewDense(len(rows), n, nil)
	ab := mat.NewDense(len(rows), n+1, nil)
	for i, r := range rows {
		a.SetRow(i, r.coefs)
		ab.SetRow(i, append(slices.Clone(r.coefs), r.rhs))
	}
	return rank(a), rank(ab)
}

func rank(m mat.Matrix) int {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return 0
	}
	return svd.Rank(rankTol)
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
