package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/epo/internal/portfolio"
	"github.com/wonny/epo/internal/scheduler"
	"github.com/wonny/epo/internal/scheduler/jobs"
)

var schedulerPrecompute bool

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `데이터셋 재생성 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 실행 상태 조회

Example:
  go run ./cmd/epo scheduler start
  go run ./cmd/epo scheduler list
  go run ./cmd/epo scheduler run dataset_rebuild`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- dataset_rebuild: SCHEDULE_DATASET (기본: 매일 00:05) 번들 재생성
  --precompute 를 주면 재생성 후 최적해를 계산해 DB 에 저장

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 실행 상태 조회",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
	schedulerCmd.PersistentFlags().BoolVar(&schedulerPrecompute, "precompute", false, "precompute and store optimal solutions after each rebuild")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== EPO Scheduler ===")

	sched, cleanup, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println("Registered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	name := args[0]
	fmt.Printf("Running job: %s\n", name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, cleanup, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	result, err := sched.RunNow(ctx, name)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		PrintError(fmt.Sprintf("%s failed after %d attempt(s): %s", name, result.Attempts, result.Error))
		return fmt.Errorf("job %s failed", name)
	}
	PrintSuccess(fmt.Sprintf("%s finished in %s", name, result.Duration.Round(time.Millisecond)))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler(context.Background())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	stats := sched.Stats()

	fmt.Println("Job Statistics:")
	fmt.Println()

	for _, name := range sched.Jobs() {
		stat := stats[name]
		fmt.Printf("📊 %s\n", name)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Printf("   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Printf("   Failures: %d\n", stat.FailureCount)

		if stat.LastRun != nil {
			fmt.Printf("   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastSuccess != nil {
			fmt.Printf("   Last Success: %s\n", stat.LastSuccess.Format("2006-01-02 15:04:05"))
		}
		if stat.NextRun != nil {
			fmt.Printf("   Next Run: %s\n", stat.NextRun.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}

	return nil
}

func initScheduler(ctx context.Context) (*scheduler.Scheduler, func(), error) {
	e, err := loadEnv()
	if err != nil {
		return nil, nil, err
	}

	builder, db, cleanup, err := e.newBuilder(ctx)
	if err != nil {
		return nil, nil, err
	}

	job := jobs.NewDatasetJob(builder, e.bundlePath(""), e.cfg.Dataset.Schedule, e.log)
	if schedulerPrecompute {
		backend, err := e.resolveBackend()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		job = job.WithPrecompute(jobs.PrecomputeStep{
			Backend: backend,
			Options: e.exp.BuildOptions(),
			Config:  e.exp.PrecomputeConfig(),
			Store:   portfolio.NewRepository(db.Pool),
		})
	}

	sched := scheduler.New(e.log, scheduler.WithRetries(2, 30*time.Second))
	if err := sched.AddJob(job); err != nil {
		cleanup()
		return nil, nil, err
	}

	e.log.WithField("jobs", len(sched.Jobs())).Info("Scheduler initialized")
	return sched, cleanup, nil
}
