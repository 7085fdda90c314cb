package panel

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/pkg/logger"
)

// DuplicateKey is a (time, symbol) key seen more than once
type DuplicateKey struct {
	Key   contracts.Key
	Count int
}

// FindDuplicates lists keys occurring more than once, in order of first appearance
func FindDuplicates(p *contracts.Panel) []DuplicateKey {
	counts := make(map[contracts.Key]int, p.Len())
	order := make([]contracts.Key, 0)
	for _, r := range p.Rows {
		k := r.Key()
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	dups := make([]DuplicateKey, 0)
	for _, k := range order {
		if counts[k] > 1 {
			dups = append(dups, DuplicateKey{Key: k, Count: counts[k]})
		}
	}
	return dups
}

// warnDuplicates logs every duplicated key with its count; nothing is logged for a clean panel
func warnDuplicates(log *logger.Logger, stage string, dups []DuplicateKey) {
	if len(dups) == 0 {
		return
	}
	keys := make([]string, len(dups))
	for i, d := range dups {
		keys[i] = fmt.Sprintf("%s x%d", d.Key, d.Count)
	}
	log.WithFields(map[string]interface{}{
		"stage": stage,
		"count": len(dups),
		"keys":  keys,
	}).Warn("Found duplicate (time, symbol) pairs, keeping first occurrence")
}

// Pivoter reshapes a long panel into the (time × asset × feature) bundle
// ⭐ SSOT: 자산 순서는 cost pivot 에서 한 번 정해지고 모든 feature 에 재사용
type Pivoter struct {
	logger *logger.Logger
}

// NewPivoter creates a pivoter
func NewPivoter(log *logger.Logger) *Pivoter {
	return &Pivoter{logger: logger.OrNop(log)}
}

// Pivot builds the tensor bundle. For duplicate keys the first non-missing value in input
// order wins. Times and symbols come from the cost column; cells absent for a column are 0.
func (pv *Pivoter) Pivot(p *contracts.Panel, costColumn string, featureColumns []string) (*contracts.TensorBundle, error) {
	costIdx, ok := p.ColumnIndex(costColumn)
	if !ok {
		return nil, fmt.Errorf("%w: cost column %q", ErrUnknownColumn, costColumn)
	}
	featureIdx, err := columnIndexes(p, featureColumns)
	if err != nil {
		return nil, err
	}

	warnDuplicates(pv.logger, "pivot", FindDuplicates(p))

	costs := pivotFirst(p, costIdx)
	times, symbols := costs.index()

	bundle := contracts.NewTensorBundle(times, symbols, featureColumns, costColumn)
	for t, ts := range times {
		for n, symbol := range symbols {
			k := contracts.Key{Nanos: ts.UnixNano(), Symbol: symbol}
			bundle.SetCost(t, n, costs.get(k))
		}
	}

	for f, col := range featureIdx {
		// reindexed onto the cost index; symbols missing here become zero columns
		m := pivotFirst(p, col)
		for t, ts := range times {
			for n, symbol := range symbols {
				k := contracts.Key{Nanos: ts.UnixNano(), Symbol: symbol}
				bundle.SetFeature(t, n, f, m.get(k))
			}
		}
	}

	T, N, K := bundle.Dims()
	pv.logger.WithFields(map[string]interface{}{
		"times":    T,
		"assets":   N,
		"features": K,
	}).Info("Pivoted features and costs")

	return bundle, nil
}

// pivotMatrix is a sparse (time, symbol) → value pivot of one column
type pivotMatrix struct {
	values map[contracts.Key]float64
}

func pivotFirst(p *contracts.Panel, col int) pivotMatrix {
	values := make(map[contracts.Key]float64)
	for _, r := range p.Rows {
		v := r.Values[col]
		if math.IsNaN(v) {
			continue
		}
		k := r.Key()
		if _, seen := values[k]; seen {
			continue
		}
		values[k] = v
	}
	return pivotMatrix{values: values}
}

func (m pivotMatrix) get(k contracts.Key) float64 {
	if v, ok := m.values[k]; ok {
		return v
	}
	return 0
}

// index returns the sorted times and symbols holding at least one value
func (m pivotMatrix) index() ([]time.Time, []string) {
	nanoSet := make(map[int64]struct{})
	symbolSet := make(map[string]struct{})
	for k := range m.values {
		nanoSet[k.Nanos] = struct{}{}
		symbolSet[k.Symbol] = struct{}{}
	}

	nanos := make([]int64, 0, len(nanoSet))
	for n := range nanoSet {
		nanos = append(nanos, n)
	}
	slices.Sort(nanos)
	times := make([]time.Time, len(nanos))
	for i, n := range nanos {
		times[i] = time.Unix(0, n).UTC()
	}

	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	return times, symbols
}

// Unpivot turns the cost matrix back into (time, symbol, cost) rows
func Unpivot(b *contracts.TensorBundle) *contracts.Panel {
	out := contracts.NewPanel(b.CostName)
	for t, ts := range b.Times {
		for n, symbol := range b.Symbols {
			out.Rows = append(out.Rows, contracts.Row{Time: ts, Symbol: symbol, Values: []float64{b.Cost(t, n)}})
		}
	}
	return out
}
