package optmodel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSolverUnavailable means the model was built without a usable solver backend
var ErrSolverUnavailable = errors.New("optmodel: solver backend unavailable")

// ValidationError 벡터 길이 불일치 (재시도 금지)
type ValidationError struct {
	Field string
	Want  int
	Got   int
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: got %d coefficients, model has %d decision variables", e.Field, e.Got, e.Want)
}

// InfeasibilityError carries the minimal infeasible subsystem of a failed solve.
// Constraints is never empty.
type InfeasibilityError struct {
	Constraints []string
}

func (e InfeasibilityError) Error() string {
	return fmt.Sprintf("optmodel: model is infeasible, minimal infeasible subsystem: [%s]", strings.Join(e.Constraints, ", "))
}
