package dataset

import (
	"fmt"

	"github.com/wonny/epo/internal/contracts"
)

// Window returns features[t-lookback+1 .. t] as a row-major [lookback][N][K] slice.
// Steps before the first timestamp are zero padded; nothing after t is read.
func Window(b *contracts.TensorBundle, t, lookback int) ([]float64, error) {
	T, N, K := b.Dims()
	if t < 0 || t >= T {
		return nil, fmt.Errorf("window: index %d out of range [0, %d)", t, T)
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("window: lookback must be > 0, got %d", lookback)
	}

	step := N * K
	out := make([]float64, lookback*step)
	first := t - lookback + 1
	for i := 0; i < lookback; i++ {
		src := first + i
		if src < 0 {
			continue
		}
		copy(out[i*step:(i+1)*step], b.Features[src*step:(src+1)*step])
	}
	return out, nil
}

// Sample is one training example: a feature window, the realized cost row and its optimal decision
type Sample struct {
	Index     int
	Window    []float64 // [lookback][N][K]
	Costs     []float64 // [N]
	Optimal   []float64 // [N]
	Objective float64
}

// OptDataset pairs a bundle with its precomputed optimal decisions
type OptDataset struct {
	bundle   *contracts.TensorBundle
	optimal  *contracts.OptimalSet
	lookback int
}

// NewOptDataset checks that bundle and optimal set share the same index
func NewOptDataset(b *contracts.TensorBundle, optimal *contracts.OptimalSet, lookback int) (*OptDataset, error) {
	if lookback <= 0 {
		return nil, fmt.Errorf("opt dataset: lookback must be > 0, got %d", lookback)
	}
	if len(optimal.Times) != len(b.Times) {
		return nil, fmt.Errorf("opt dataset: %d optimal rows for %d timestamps", len(optimal.Times), len(b.Times))
	}
	for i := range b.Times {
		if !b.Times[i].Equal(optimal.Times[i]) {
			return nil, fmt.Errorf("opt dataset: time mismatch at index %d", i)
		}
	}
	if len(optimal.Symbols) != len(b.Symbols) {
		return nil, fmt.Errorf("opt dataset: %d optimal symbols for %d assets", len(optimal.Symbols), len(b.Symbols))
	}
	for i := range b.Symbols {
		if b.Symbols[i] != optimal.Symbols[i] {
			return nil, fmt.Errorf("opt dataset: symbol mismatch at index %d: %s != %s", i, b.Symbols[i], optimal.Symbols[i])
		}
	}
	return &OptDataset{bundle: b, optimal: optimal, lookback: lookback}, nil
}

func (d *OptDataset) Len() int {
	return len(d.bundle.Times)
}

// Sample returns example i
func (d *OptDataset) Sample(i int) (Sample, error) {
	w, err := Window(d.bundle, i, d.lookback)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Index:     i,
		Window:    w,
		Costs:     d.bundle.CostRow(i),
		Optimal:   append([]float64(nil), d.optimal.Row(i)...),
		Objective: d.optimal.Objectives[i],
	}, nil
}
