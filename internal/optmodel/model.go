package optmodel

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/solver"
	"github.com/wonny/epo/pkg/logger"
)

// Options describes the fixed structure of a model
type Options struct {
	Sense       solver.Sense
	Lower       []float64 // nil = 0 for every variable
	Upper       []float64 // nil = +Inf for every variable
	Constraints []solver.Constraint
}

// Model is a linear decision model over one variable per asset.
// ⭐ 제약 추가는 AddConstr(복제)로만 가능, 원본은 변경되지 않음
type Model struct {
	mu      sync.RWMutex
	backend solver.Backend
	session solver.Session
	assets  []string
	cuts    int
	logger  *logger.Logger
}

// New builds a model with its structural constraints
func New(backend solver.Backend, assets []string, opts Options, log *logger.Logger) (*Model, error) {
	if backend == nil {
		return nil, ErrSolverUnavailable
	}
	n := len(assets)
	if n == 0 {
		return nil, fmt.Errorf("optmodel: at least one asset required")
	}

	lower, upper := opts.Lower, opts.Upper
	if lower == nil {
		lower = make([]float64, n)
	}
	if upper == nil {
		upper = make([]float64, n)
		for i := range upper {
			upper[i] = math.Inf(1)
		}
	}
	if len(lower) != n {
		return nil, ValidationError{Field: "lower", Want: n, Got: len(lower)}
	}
	if len(upper) != n {
		return nil, ValidationError{Field: "upper", Want: n, Got: len(upper)}
	}

	session, err := backend.NewSession(solver.Problem{
		NumVars: n,
		Lower:   lower,
		Upper:   upper,
		Sense:   opts.Sense,
	})
	if err != nil {
		return nil, fmt.Errorf("optmodel: %s session: %w", backend.Name(), err)
	}

	for _, c := range opts.Constraints {
		if len(c.Coefs) != n {
			return nil, ValidationError{Field: "constraint " + c.Name, Want: n, Got: len(c.Coefs)}
		}
		session.AddConstraint(c)
	}

	return &Model{
		backend: backend,
		session: session,
		assets:  slices.Clone(assets),
		logger:  logger.OrNop(log),
	}, nil
}

// NewFromRegistry builds a model on a backend looked up by name
func NewFromRegistry(name string, assets []string, opts Options, log *logger.Logger) (*Model, error) {
	backend, err := solver.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSolverUnavailable, err)
	}
	return New(backend, assets, opts, log)
}

// NumCost returns the number of decision variables
func (m *Model) NumCost() int {
	return len(m.assets)
}

// Assets returns the asset name for each variable index
func (m *Model) Assets() []string {
	return slices.Clone(m.assets)
}

func (m *Model) Sense() solver.Sense {
	return m.session.Sense()
}

// Backend returns the backend name
func (m *Model) Backend() string {
	return m.backend.Name()
}

// Constraints returns a copy of the constraint set
func (m *Model) Constraints() []solver.Constraint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.Constraints()
}

// SetObjective replaces the linear objective coefficients
func (m *Model) SetObjective(c []float64) error {
	if len(c) != m.NumCost() {
		return ValidationError{Field: "objective", Want: m.NumCost(), Got: len(c)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.SetObjective(c)
	return nil
}

// Solve optimizes the current objective.
// Infeasible models return InfeasibilityError; unbounded models return a
// solution with StatusUnbounded, NaN values and an infinite objective.
func (m *Model) Solve() (*contracts.Solution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.session.Optimize()
	if err != nil {
		return nil, fmt.Errorf("optmodel: solve: %w", err)
	}

	switch res.Status {
	case contracts.StatusOptimal:
		return &contracts.Solution{X: res.X, Objective: res.Objective, Status: res.Status}, nil

	case contracts.StatusUnbounded:
		m.logger.WithFields(map[string]interface{}{
			"backend": m.backend.Name(),
			"vars":    m.NumCost(),
		}).Warn("Model is unbounded, solution is unreliable")

		x := res.X
		if len(x) != m.NumCost() {
			x = make([]float64, m.NumCost())
			for i := range x {
				x[i] = math.NaN()
			}
		}
		return &contracts.Solution{X: x, Objective: res.Objective, Status: res.Status}, nil

	case contracts.StatusInfeasible:
		iis := m.diagnose()
		m.logger.WithFields(map[string]interface{}{
			"backend": m.backend.Name(),
			"iis":     iis,
		}).Error("Model is infeasible")
		return nil, InfeasibilityError{Constraints: iis}
	}

	return nil, fmt.Errorf("optmodel: unexpected solver status %q", res.Status)
}

// diagnose falls back to every constraint name when the backend cannot isolate a subsystem
func (m *Model) diagnose() []string {
	iis, err := m.session.ComputeIIS()
	if err == nil && len(iis) > 0 {
		return iis
	}

	if err != nil && !errors.Is(err, solver.ErrNotInfeasible) {
		m.logger.WithError(err).Warn("IIS computation failed, reporting full constraint set")
	}
	cons := m.session.Constraints()
	names := make([]string, 0, len(cons))
	for _, c := range cons {
		names = append(names, c.Name)
	}
	if len(names) == 0 {
		names = append(names, "bounds")
	}
	return names
}

// Clone returns a model with its own solver session
func (m *Model) Clone() *Model {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Model{
		backend: m.backend,
		session: m.session.Copy(),
		assets:  slices.Clone(m.assets),
		cuts:    m.cuts,
		logger:  m.logger,
	}
}

// AddConstr returns a clone with coefs · x <= rhs added; the receiver is unchanged
func (m *Model) AddConstr(coefs []float64, rhs float64) (*Model, error) {
	if len(coefs) != m.NumCost() {
		return nil, ValidationError{Field: "constraint", Want: m.NumCost(), Got: len(coefs)}
	}

	child := m.Clone()
	child.cuts++
	child.session.AddConstraint(solver.Constraint{
		Name:  fmt.Sprintf("cut_%d", child.cuts),
		Coefs: slices.Clone(coefs),
		Op:    solver.LessEq,
		RHS:   rhs,
	})
	return child, nil
}

func (m *Model) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("optModel(%s, %d vars, %d constrs, %s)",
		m.backend.Name(), m.NumCost(), len(m.session.Constraints()), m.session.Sense())
}
