package solver

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/wonny/epo/internal/contracts"
)

// ErrBackendNotFound is returned by Lookup for an unregistered name
var ErrBackendNotFound = errors.New("solver: backend not registered")

// ErrNotInfeasible is returned by ComputeIIS when the constraint set admits a feasible point
var ErrNotInfeasible = errors.New("solver: model is feasible, no IIS")

// Sense is the optimization direction
type Sense string

const (
	Minimize Sense = "minimize"
	Maximize Sense = "maximize"
)

// Op is a linear constraint relation
type Op string

const (
	LessEq    Op = "<="
	Equal     Op = "="
	GreaterEq Op = ">="
)

// Constraint is a named linear row: Coefs · x (Op) RHS
type Constraint struct {
	Name  string
	Coefs []float64
	Op    Op
	RHS   float64
}

// Clone returns a copy that shares no memory with c
func (c Constraint) Clone() Constraint {
	c.Coefs = slices.Clone(c.Coefs)
	return c
}

// Problem is the fixed structure a session is created with
type Problem struct {
	NumVars int
	Lower   []float64 // finite lower bounds
	Upper   []float64 // +Inf allowed
	Sense   Sense
}

// Result is the raw outcome of one optimize call
type Result struct {
	Status    contracts.SolveStatus
	X         []float64
	Objective float64
}

// Session is one solver-side model. Sessions never share state with their copies.
type Session interface {
	NumVars() int
	Sense() Sense
	SetObjective(c []float64)
	AddConstraint(c Constraint)
	Constraints() []Constraint
	Optimize() (Result, error)
	// ComputeIIS returns the names of a minimal infeasible subset of constraints.
	ComputeIIS() ([]string, error)
	Copy() Session
}

// Backend creates solver sessions
type Backend interface {
	Name() string
	NewSession(p Problem) (Session, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Backend)
)

// Register makes a backend available by name, replacing any previous one
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[b.Name()] = b
}

// Lookup returns a registered backend
func Lookup(name string) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, name)
	}
	return b, nil
}

// Backends lists registered backend names
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
