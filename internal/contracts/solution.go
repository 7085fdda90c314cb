package contracts

import "time"

// SolveStatus is the terminal status reported by a solver backend
type SolveStatus string

const (
	StatusOptimal    SolveStatus = "OPTIMAL"
	StatusInfeasible SolveStatus = "INFEASIBLE"
	StatusUnbounded  SolveStatus = "UNBOUNDED"
)

// Solution is a value per decision variable plus the objective value.
// It is only meaningful for the model instance that produced it.
type Solution struct {
	X         []float64   `json:"x"`
	Objective float64     `json:"objective"`
	Status    SolveStatus `json:"status"`
}

// Reliable reports whether the solution came from an optimal solve
func (s *Solution) Reliable() bool {
	return s.Status == StatusOptimal
}

// Sum returns the sum of decision values
func (s *Solution) Sum() float64 {
	total := 0.0
	for _, v := range s.X {
		total += v
	}
	return total
}

// OptimalSet holds the precomputed optimal decision for every cost row of a bundle
type OptimalSet struct {
	RunID      string        `json:"run_id"`
	Times      []time.Time   `json:"times"`
	Symbols    []string      `json:"symbols"`
	X          []float64     `json:"x"` // [T][N] row-major
	Objectives []float64     `json:"objectives"`
	Statuses   []SolveStatus `json:"statuses"`
}

// NewOptimalSet allocates a set for T rows of N decisions
func NewOptimalSet(runID string, times []time.Time, symbols []string) *OptimalSet {
	t, n := len(times), len(symbols)
	return &OptimalSet{
		RunID:      runID,
		Times:      times,
		Symbols:    symbols,
		X:          make([]float64, t*n),
		Objectives: make([]float64, t),
		Statuses:   make([]SolveStatus, t),
	}
}

// Row returns the decision vector at time index t
func (s *OptimalSet) Row(t int) []float64 {
	n := len(s.Symbols)
	return s.X[t*n : (t+1)*n]
}

// Put stores a solution at time index t
func (s *OptimalSet) Put(t int, sol *Solution) {
	copy(s.Row(t), sol.X)
	s.Objectives[t] = sol.Objective
	s.Statuses[t] = sol.Status
}
