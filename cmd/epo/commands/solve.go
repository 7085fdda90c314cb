package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/dataset"
	"github.com/wonny/epo/internal/optmodel"
	"github.com/wonny/epo/internal/portfolio"
)

var (
	solveBundle string
	solveIndex  int
	solveCap    float64
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "단일 시점 결정 모델 풀기",
	Long: `번들의 구조 파라미터로 결정 모델을 만들고 t 시점 비용 벡터로 풉니다.

--cap 을 주면 첫 해에서 가장 큰 비중 종목에 x_i <= cap 컷을 추가한
복제 모델을 다시 풉니다 (원본 모델은 변하지 않음).

Example:
  go run ./cmd/epo solve --t 120
  go run ./cmd/epo solve --t 120 --cap 0.05`,
	RunE: runSolve,
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringVar(&solveBundle, "bundle", "", "bundle path (default: BUNDLE_PATH)")
	solveCmd.Flags().IntVar(&solveIndex, "t", -1, "time index (default: last)")
	solveCmd.Flags().Float64Var(&solveCap, "cap", 0, "cut the largest weight to this value and re-solve")
}

func runSolve(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	bundle, err := dataset.LoadBundle(e.bundlePath(solveBundle))
	if err != nil {
		return err
	}
	if bundle.Params == nil {
		return fmt.Errorf("bundle %s has no structural params", bundle.RunID)
	}

	T, _, _ := bundle.Dims()
	t := solveIndex
	if t < 0 {
		t = T - 1
	}
	if t < 0 || t >= T {
		return fmt.Errorf("time index %d out of range [0, %d)", t, T)
	}

	backend, err := e.resolveBackend()
	if err != nil {
		return err
	}
	model, err := portfolio.BuildModel(backend, bundle.Symbols, *bundle.Params, e.exp.BuildOptions(), e.log)
	if err != nil {
		return err
	}
	if err := model.SetObjective(bundle.CostRow(t)); err != nil {
		return err
	}

	PrintHeader("Decision Model",
		fmt.Sprintf("Model:  %s", model),
		fmt.Sprintf("Time:   %s (t=%d)", bundle.Times[t].Format("2006-01-02 15:04"), t),
	)

	sol, err := model.Solve()
	if err != nil {
		return reportSolveError(err)
	}
	printSolution(bundle.Symbols, *bundle.Params, sol)

	if solveCap <= 0 {
		return nil
	}

	// cut the heaviest asset and re-solve on a copy
	i := floats.MaxIdx(sol.X)
	coefs := make([]float64, model.NumCost())
	coefs[i] = 1
	cut, err := model.AddConstr(coefs, solveCap)
	if err != nil {
		return err
	}

	fmt.Printf("\nCut: x[%s] <= %.4f\n", bundle.Symbols[i], solveCap)
	capped, err := cut.Solve()
	if err != nil {
		return reportSolveError(err)
	}
	printSolution(bundle.Symbols, *bundle.Params, capped)
	return nil
}

func reportSolveError(err error) error {
	var infeasible optmodel.InfeasibilityError
	if errors.As(err, &infeasible) {
		PrintError("Model is infeasible")
		fmt.Println("Irreducible infeasible subsystem:")
		for _, name := range infeasible.Constraints {
			fmt.Printf("  - %s\n", name)
		}
	}
	return err
}

func printSolution(symbols []string, params contracts.StructuralParams, sol *contracts.Solution) {
	fmt.Println()
	if !sol.Reliable() {
		PrintWarning(fmt.Sprintf("Solve status %s, solution is unreliable", sol.Status))
		return
	}

	widths := []int{14, 12}
	PrintTableHeader([]string{"Symbol", "Weight"}, widths)
	for i, symbol := range symbols {
		if sol.X[i] == 0 {
			continue
		}
		PrintTableRow([]string{symbol, formatFloat(sol.X[i])}, widths)
	}
	PrintSeparator()
	fmt.Printf("Objective: %.6f  Sum: %.6f\n", sol.Objective, sol.Sum())

	report, err := portfolio.Evaluate(params, sol.X)
	if err != nil {
		PrintWarning(err.Error())
		return
	}
	fmt.Printf("Variance:  %.6f (within sigma: %t)\n", report.Variance, report.WithinSigma)
	fmt.Printf("Exposure:  %.6f (within factor: %t)\n", report.FactorExpo, report.WithinFactor)
	fmt.Printf("Max weight: %.6f\n", report.MaxWeight)
}
