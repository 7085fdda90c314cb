package commands

import (
	"context"
	"fmt"

	"github.com/wonny/epo/internal/dataset"
	"github.com/wonny/epo/internal/experiment"
	"github.com/wonny/epo/internal/marketdata"
	"github.com/wonny/epo/internal/optmodel"
	"github.com/wonny/epo/internal/solver"
	"github.com/wonny/epo/pkg/config"
	"github.com/wonny/epo/pkg/database"
	"github.com/wonny/epo/pkg/logger"
	"github.com/wonny/epo/pkg/redis"
)

// env bundles process-level dependencies shared by commands
type env struct {
	cfg *config.Config
	log *logger.Logger
	exp *experiment.Config
}

// loadEnv loads process config, logger and the experiment file
func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := experimentFile
	if path == "" {
		path = cfg.Dataset.ExperimentConfig
	}
	exp, _, err := experiment.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load experiment %s: %w", path, err)
	}
	for _, w := range experiment.Warn(exp) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return &env{cfg: cfg, log: log, exp: exp}, nil
}

// resolveBackend returns the configured solver backend
func (e *env) resolveBackend() (solver.Backend, error) {
	if e.cfg.Solver.Backend == solver.SimplexName {
		solver.Register(solver.NewSimplexBackend(e.cfg.Solver.Tolerance))
	}
	backend, err := solver.Lookup(e.cfg.Solver.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", optmodel.ErrSolverUnavailable, err)
	}
	return backend, nil
}

// newBuilder wires Postgres and Redis into a dataset builder.
// The returned DB stays open for callers that also persist results; cleanup releases both.
func (e *env) newBuilder(ctx context.Context) (*dataset.Builder, *database.DB, func(), error) {
	db, err := database.New(ctx, e.cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if health, err := db.HealthCheck(ctx); err == nil {
		e.log.WithFields(map[string]interface{}{
			"response_time": health.ResponseTime.String(),
			"total_conns":   health.TotalConns,
		}).Debug("Database connected")
	}

	rdb, err := redis.New(ctx, e.cfg)
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	buildCfg, err := e.exp.BuildConfig()
	if err != nil {
		db.Close()
		_ = rdb.Close()
		return nil, nil, nil, err
	}

	var stats *dataset.StatsCache
	if rdb.Enabled() {
		stats = dataset.NewStatsCache(redis.NewCache(rdb, "epo"))
		e.log.WithField("addr", rdb.Addr()).Debug("Scaler stats cache enabled")
	}

	builder := dataset.NewBuilder(marketdata.NewKlineRepository(db.Pool), stats, buildCfg, e.log)
	cleanup := func() {
		_ = rdb.Close()
		db.Close()
	}
	return builder, db, cleanup, nil
}

// bundlePath returns the --bundle flag or BUNDLE_PATH
func (e *env) bundlePath(flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.Dataset.BundlePath
}
