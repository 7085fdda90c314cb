package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/dataset"
	"github.com/wonny/epo/internal/portfolio"
	"github.com/wonny/epo/pkg/database"
)

var (
	precomputeBundle string
	precomputeSaveDB bool
)

// precomputeCmd represents the precompute command
var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "전 시점 최적해 사전 계산",
	Long: `번들의 모든 비용 행에 대해 결정 모델 최적해를 계산합니다.

배치 단위로 모델을 복제하여 병렬로 풀고, --save-db 를 주면
epo.optimal_runs / epo.optimal_solutions 테이블에 저장합니다.

Example:
  go run ./cmd/epo precompute
  go run ./cmd/epo precompute --save-db`,
	RunE: runPrecompute,
}

func init() {
	rootCmd.AddCommand(precomputeCmd)
	precomputeCmd.Flags().StringVar(&precomputeBundle, "bundle", "", "bundle path (default: BUNDLE_PATH)")
	precomputeCmd.Flags().BoolVar(&precomputeSaveDB, "save-db", false, "store optimal solutions in PostgreSQL")
}

func runPrecompute(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	bundle, err := dataset.LoadBundle(e.bundlePath(precomputeBundle))
	if err != nil {
		return err
	}
	if bundle.Params == nil {
		return fmt.Errorf("bundle %s has no structural params", bundle.RunID)
	}

	backend, err := e.resolveBackend()
	if err != nil {
		return err
	}
	model, err := portfolio.BuildModel(backend, bundle.Symbols, *bundle.Params, e.exp.BuildOptions(), e.log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := dataset.Precompute(ctx, model, bundle, e.exp.PrecomputeConfig(), e.log)
	if err != nil {
		return err
	}

	ds, err := dataset.NewOptDataset(bundle, set, e.exp.Precompute.Lookback)
	if err != nil {
		return err
	}

	counts := make(map[contracts.SolveStatus]int)
	for _, st := range set.Statuses {
		counts[st]++
	}
	PrintHeader("Precompute",
		fmt.Sprintf("Run ID:     %s", set.RunID),
		fmt.Sprintf("Model:      %s", model),
		fmt.Sprintf("Rows:       %d", len(set.Statuses)),
		fmt.Sprintf("Optimal:    %d", counts[contracts.StatusOptimal]),
		fmt.Sprintf("Infeasible: %d", counts[contracts.StatusInfeasible]),
		fmt.Sprintf("Unbounded:  %d", counts[contracts.StatusUnbounded]),
		fmt.Sprintf("Samples:    %d (lookback %d)", ds.Len(), e.exp.Precompute.Lookback),
	)

	if !precomputeSaveDB {
		return nil
	}

	db, err := database.New(ctx, e.cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := portfolio.NewRepository(db.Pool).SaveOptimalSet(ctx, set); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Stored %d optimal rows", len(set.Statuses)))
	return nil
}
