package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/epo/internal/dataset"
)

var buildOutput string

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "데이터셋 번들 생성",
	Long: `kline 패널을 읽어 정렬/스케일링 후 텐서 번들을 생성합니다.

단계:
  1. DB 에서 원시 kline 로드
  2. (time, symbol) 그리드 정렬 + forward fill
  3. 종목별 min/max 스케일링 (Redis 에 통계 캐시)
  4. [T][N][K] 피처 / [T][N] 비용 텐서로 변환
  5. 구조 파라미터 생성 (seed 고정)

Example:
  go run ./cmd/epo build
  go run ./cmd/epo build --out data/test.epob`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildOutput, "out", "", "bundle output path (default: BUNDLE_PATH)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}

	ctx := context.Background()
	builder, _, cleanup, err := e.newBuilder(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bundle, err := builder.Build(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	path := e.bundlePath(buildOutput)
	if err := dataset.SaveBundle(path, bundle); err != nil {
		return fmt.Errorf("save bundle: %w", err)
	}

	T, N, K := bundle.Dims()
	PrintHeader("Dataset Build",
		fmt.Sprintf("Run ID:   %s", bundle.RunID),
		fmt.Sprintf("Shape:    T=%d N=%d K=%d", T, N, K),
		fmt.Sprintf("Cost:     %s", bundle.CostName),
		fmt.Sprintf("Output:   %s", path),
	)
	PrintSuccess("Bundle saved")
	return nil
}
