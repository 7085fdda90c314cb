package marketdata

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/epo/internal/contracts"
)

// DefaultTable holds one row per (symbol, open_time) with one numeric column per field
const DefaultTable = "market.klines"

// KlineRepository implements contracts.PanelSource
// ⭐ SSOT: 캔들 데이터 저장소는 여기서만
type KlineRepository struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
}

// NewKlineRepository creates a new kline repository on DefaultTable
func NewKlineRepository(pool *pgxpool.Pool) *KlineRepository {
	return &KlineRepository{pool: pool, table: pgx.Identifier(strings.Split(DefaultTable, "."))}
}

// LoadPanel reads (open_time, symbol, columns...) rows between q.From and q.To.
// NULL values become NaN so the aligner treats them as missing.
func (r *KlineRepository) LoadPanel(ctx context.Context, q contracts.PanelQuery) (*contracts.Panel, error) {
	query, args, err := buildPanelQuery(r.table, q)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query klines: %w", err)
	}
	defer rows.Close()

	p := contracts.NewPanel(q.Columns...)
	nullable := make([]*float64, len(q.Columns))
	dest := make([]any, 0, len(q.Columns)+2)

	var (
		openTime time.Time
		symbol   string
	)
	dest = append(dest, &openTime, &symbol)
	for i := range nullable {
		dest = append(dest, &nullable[i])
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan kline: %w", err)
		}
		values := make([]float64, len(nullable))
		for i, v := range nullable {
			if v == nil {
				values[i] = math.NaN()
				continue
			}
			values[i] = *v
		}
		if err := p.Append(openTime, symbol, values...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return p, nil
}

// SavePanel upserts panel rows; NaN is stored as NULL
func (r *KlineRepository) SavePanel(ctx context.Context, p *contracts.Panel) error {
	if p.Len() == 0 {
		return nil
	}
	if len(p.Columns) == 0 {
		return fmt.Errorf("save panel: no value columns")
	}

	cols := make([]string, len(p.Columns))
	updates := make([]string, len(p.Columns))
	placeholders := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		id := pgx.Identifier{c}.Sanitize()
		cols[i] = id
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", id, id)
		placeholders[i] = fmt.Sprintf("$%d", i+3)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (open_time, symbol, %s)
		VALUES ($1, $2, %s)
		ON CONFLICT (symbol, open_time) DO UPDATE SET %s`,
		r.table.Sanitize(), strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))

	batch := &pgx.Batch{}
	for _, row := range p.Rows {
		args := make([]any, 0, len(row.Values)+2)
		args = append(args, row.Time, row.Symbol)
		for _, v := range row.Values {
			if math.IsNaN(v) {
				args = append(args, nil)
				continue
			}
			args = append(args, v)
		}
		batch.Queue(query, args...)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range p.Rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert kline: %w", err)
		}
	}
	return nil
}

func buildPanelQuery(table pgx.Identifier, q contracts.PanelQuery) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("panel query: no value columns")
	}
	if q.To.Before(q.From) {
		return "", nil, fmt.Errorf("panel query: to %s is before from %s", q.To, q.From)
	}

	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT open_time, symbol, %s FROM %s WHERE open_time BETWEEN $1 AND $2",
		strings.Join(cols, ", "), table.Sanitize())
	args := []any{q.From, q.To}
	if len(q.Symbols) > 0 {
		sb.WriteString(" AND symbol = ANY($3)")
		args = append(args, q.Symbols)
	}
	sb.WriteString(" ORDER BY open_time, symbol")

	return sb.String(), args, nil
}
