package portfolio

import (
	"fmt"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/optmodel"
	"github.com/wonny/epo/internal/solver"
	"github.com/wonny/epo/pkg/logger"
)

// BuildModel builds the market-neutral decision model from structural params.
// ⭐ SSOT: 구조 제약(budget, bounds, risk)은 여기서만 생성
func BuildModel(backend solver.Backend, assets []string, params contracts.StructuralParams, opts BuildOptions, log *logger.Logger) (*optmodel.Model, error) {
	log = logger.OrNop(log)
	n := len(assets)
	if params.N != n {
		return nil, optmodel.ValidationError{Field: "params.n", Want: n, Got: params.N}
	}
	if len(params.BudgetA) != len(params.BudgetB) {
		return nil, fmt.Errorf("structural params: %d budget rows but %d right-hand sides", len(params.BudgetA), len(params.BudgetB))
	}

	cons := make([]solver.Constraint, 0, len(params.BudgetA)+n+3)
	for k, row := range params.BudgetA {
		cons = append(cons, solver.Constraint{
			Name:  fmt.Sprintf("budget_%d", k),
			Coefs: row,
			Op:    solver.Equal,
			RHS:   params.BudgetB[k],
		})
	}

	if opts.RiskLimits {
		cons = append(cons, riskRows(assets, params, log)...)
	}

	sense := solver.Minimize
	if opts.Maximize {
		sense = solver.Maximize
	}

	m, err := optmodel.New(backend, assets, optmodel.Options{
		Sense:       sense,
		Lower:       params.Lower,
		Upper:       params.Upper,
		Constraints: cons,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"assets":      n,
		"constraints": len(cons),
		"sense":       sense,
		"seed":        params.Seed,
	}).Debug("Decision model built")

	return m, nil
}

func riskRows(assets []string, params contracts.StructuralParams, log *logger.Logger) []solver.Constraint {
	n := len(assets)
	rows := make([]solver.Constraint, 0, n+3)

	if len(params.RiskFactor) == n {
		neg := make([]float64, n)
		for i, f := range params.RiskFactor {
			neg[i] = -f
		}
		rows = append(rows,
			solver.Constraint{Name: "risk_upper", Coefs: params.RiskFactor, Op: solver.LessEq, RHS: params.RiskAbs},
			solver.Constraint{Name: "risk_lower", Coefs: neg, Op: solver.LessEq, RHS: params.RiskAbs},
		)
	} else {
		log.WithField("risk_factor", len(params.RiskFactor)).Warn("Risk factor size mismatch, skipping risk rows")
	}

	for i, asset := range assets {
		e := make([]float64, n)
		e[i] = 1
		rows = append(rows, solver.Constraint{Name: "single_" + asset, Coefs: e, Op: solver.LessEq, RHS: params.SingleAbs})
	}

	// sum x == ||x||₁ only when no weight can go negative
	nonNegative := true
	for _, l := range params.Lower {
		if l < 0 {
			nonNegative = false
			break
		}
	}
	if nonNegative {
		ones := make([]float64, n)
		for i := range ones {
			ones[i] = 1
		}
		rows = append(rows, solver.Constraint{Name: "l1", Coefs: ones, Op: solver.LessEq, RHS: params.L1Abs})
	} else {
		log.Warn("Negative lower bounds, l1 limit is not linear and is skipped")
	}

	return rows
}
