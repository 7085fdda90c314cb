package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/epo/internal/contracts"
)

// ErrRunNotFound is returned when no optimal set is stored for a run
var ErrRunNotFound = errors.New("portfolio: run not found")

// Repository persists precomputed optimal decisions
// ⭐ SSOT: 최적해 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveOptimalSet replaces every stored row of set.RunID
func (r *Repository) SaveOptimalSet(ctx context.Context, set *contracts.OptimalSet) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "DELETE FROM epo.optimal_solutions WHERE run_id = $1", set.RunID)
	if err != nil {
		return fmt.Errorf("failed to delete old solutions: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO epo.optimal_runs (run_id, symbols, row_count, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (run_id) DO UPDATE SET
			symbols = EXCLUDED.symbols,
			row_count = EXCLUDED.row_count,
			created_at = NOW()
	`, set.RunID, set.Symbols, len(set.Times))
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO epo.optimal_solutions (run_id, ts, weights, objective, status)
		VALUES ($1, $2, $3, $4, $5)`

	for t, ts := range set.Times {
		batch.Queue(query, set.RunID, ts, set.Row(t), set.Objectives[t], string(set.Statuses[t]))
	}

	br := tx.SendBatch(ctx, batch)
	for range set.Times {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert solution: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetOptimalSet loads a stored optimal set ordered by time
func (r *Repository) GetOptimalSet(ctx context.Context, runID string) (*contracts.OptimalSet, error) {
	var symbols []string
	err := r.pool.QueryRow(ctx,
		"SELECT symbols FROM epo.optimal_runs WHERE run_id = $1", runID,
	).Scan(&symbols)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT ts, weights, objective, status
		FROM epo.optimal_solutions
		WHERE run_id = $1
		ORDER BY ts
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query solutions: %w", err)
	}
	defer rows.Close()

	set := contracts.NewOptimalSet(runID, nil, symbols)
	for rows.Next() {
		var (
			ts        time.Time
			weights   []float64
			objective float64
			status    string
		)
		if err := rows.Scan(&ts, &weights, &objective, &status); err != nil {
			return nil, fmt.Errorf("failed to scan solution: %w", err)
		}
		if len(weights) != len(symbols) {
			return nil, fmt.Errorf("solution at %s has %d weights for %d symbols", ts, len(weights), len(symbols))
		}
		set.Times = append(set.Times, ts.UTC())
		set.X = append(set.X, weights...)
		set.Objectives = append(set.Objectives, objective)
		set.Statuses = append(set.Statuses, contracts.SolveStatus(status))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return set, nil
}
