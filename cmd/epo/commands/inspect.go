package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/epo/internal/dataset"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [bundle]",
	Short: "번들 내용 조회",
	Long: `저장된 텐서 번들의 차원, 기간, 종목별 비용 통계를 출력합니다.

Example:
  go run ./cmd/epo inspect
  go run ./cmd/epo inspect data/crypto_data.epob`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		path = e.bundlePath("")
	}

	bundle, err := dataset.LoadBundle(path)
	if err != nil {
		return err
	}

	T, N, K := bundle.Dims()
	lines := []string{
		fmt.Sprintf("Run ID:   %s", bundle.RunID),
		fmt.Sprintf("Shape:    T=%d N=%d K=%d", T, N, K),
		fmt.Sprintf("Features: %v", bundle.FeatureNames),
		fmt.Sprintf("Cost:     %s", bundle.CostName),
	}
	if T > 0 {
		lines = append(lines, fmt.Sprintf("Range:    %s ~ %s",
			bundle.Times[0].Format("2006-01-02 15:04"), bundle.Times[T-1].Format("2006-01-02 15:04")))
	}
	if p := bundle.Params; p != nil {
		lines = append(lines, fmt.Sprintf("Params:   seed=%d budget_rows=%d risk=%.2f single=%.2f",
			p.Seed, len(p.BudgetA), p.RiskAbs, p.SingleAbs))
	}
	PrintHeader("Tensor Bundle", lines...)

	widths := []int{14, 12, 12, 10}
	PrintTableHeader([]string{"Symbol", "Cost Mean", "Cost Std", "NaN"}, widths)
	col := make([]float64, 0, T)
	for n, symbol := range bundle.Symbols {
		col = col[:0]
		missing := 0
		for t := 0; t < T; t++ {
			v := bundle.Cost(t, n)
			if math.IsNaN(v) {
				missing++
				continue
			}
			col = append(col, v)
		}
		mean, std := math.NaN(), math.NaN()
		if len(col) > 1 {
			mean, std = stat.MeanStdDev(col, nil)
		}
		PrintTableRow([]string{symbol, formatFloat(mean), formatFloat(std), fmt.Sprintf("%d", missing)}, widths)
	}
	return nil
}
