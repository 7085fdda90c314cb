package contracts

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"
)

// Row is one long-format observation keyed by (time, symbol)
// ⭐ Values is index-aligned with Panel.Columns; NaN marks a missing value
type Row struct {
	Time   time.Time `json:"time"`
	Symbol string    `json:"symbol"`
	Values []float64 `json:"values"`
}

// Key returns the (time, symbol) key of the row
func (r Row) Key() Key {
	return Key{Nanos: r.Time.UnixNano(), Symbol: r.Symbol}
}

// Key identifies a panel cell. Times are compared by instant, not by location.
type Key struct {
	Nanos  int64
	Symbol string
}

// Time returns the key's timestamp in UTC
func (k Key) Time() time.Time {
	return time.Unix(0, k.Nanos).UTC()
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Time().Format(time.RFC3339), k.Symbol)
}

// Panel is a long-format table of (time, symbol, numeric columns)
// ⭐ SSOT: 파이프라인 단계 간 패널 전달 형식
type Panel struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewPanel creates an empty panel with the given value columns
func NewPanel(columns ...string) *Panel {
	return &Panel{Columns: slices.Clone(columns)}
}

// Append adds a row; values must match the column count
func (p *Panel) Append(t time.Time, symbol string, values ...float64) error {
	if len(values) != len(p.Columns) {
		return fmt.Errorf("row %s@%s: got %d values for %d columns",
			symbol, t.Format(time.RFC3339), len(values), len(p.Columns))
	}
	p.Rows = append(p.Rows, Row{Time: t.UTC(), Symbol: symbol, Values: slices.Clone(values)})
	return nil
}

// MustAppend is Append for fixtures whose shape is known to be correct
func (p *Panel) MustAppend(t time.Time, symbol string, values ...float64) *Panel {
	if err := p.Append(t, symbol, values...); err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of rows
func (p *Panel) Len() int {
	return len(p.Rows)
}

// ColumnIndex returns the position of a value column
func (p *Panel) ColumnIndex(name string) (int, bool) {
	idx := slices.Index(p.Columns, name)
	return idx, idx >= 0
}

// Times returns the distinct timestamps in ascending order
func (p *Panel) Times() []time.Time {
	seen := make(map[int64]struct{}, len(p.Rows))
	nanos := make([]int64, 0)
	for _, r := range p.Rows {
		n := r.Time.UnixNano()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		nanos = append(nanos, n)
	}
	slices.Sort(nanos)

	times := make([]time.Time, len(nanos))
	for i, n := range nanos {
		times[i] = time.Unix(0, n).UTC()
	}
	return times
}

// Symbols returns the distinct symbols in lexical order
func (p *Panel) Symbols() []string {
	seen := make(map[string]struct{})
	symbols := make([]string, 0)
	for _, r := range p.Rows {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		symbols = append(symbols, r.Symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Value returns row i's value for column name (NaN when absent)
func (p *Panel) Value(i int, name string) float64 {
	idx, ok := p.ColumnIndex(name)
	if !ok || i < 0 || i >= len(p.Rows) {
		return math.NaN()
	}
	return p.Rows[i].Values[idx]
}

// Lookup returns the first row matching (t, symbol)
func (p *Panel) Lookup(t time.Time, symbol string) (Row, bool) {
	n := t.UnixNano()
	for _, r := range p.Rows {
		if r.Symbol == symbol && r.Time.UnixNano() == n {
			return r, true
		}
	}
	return Row{}, false
}

// Filter returns a new panel holding the rows keep accepts
func (p *Panel) Filter(keep func(Row) bool) *Panel {
	out := NewPanel(p.Columns...)
	for _, r := range p.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, Row{Time: r.Time, Symbol: r.Symbol, Values: slices.Clone(r.Values)})
		}
	}
	return out
}

// Clone returns a deep copy of the panel
func (p *Panel) Clone() *Panel {
	return p.Filter(func(Row) bool { return true })
}

// SortBySymbolTime orders rows by (symbol, time) in place
func (p *Panel) SortBySymbolTime() {
	sort.SliceStable(p.Rows, func(i, j int) bool {
		a, b := p.Rows[i], p.Rows[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Time.Before(b.Time)
	})
}
