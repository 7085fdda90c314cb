package contracts

import (
	"fmt"
	"slices"
	"time"
)

// TensorBundle is the pivoted, index-aligned output of the panel pipeline
// ⭐ SSOT: features[t,n,:] 와 costs[t,n] 은 항상 같은 (time, symbol)
type TensorBundle struct {
	RunID        string            `json:"run_id"`
	Times        []time.Time       `json:"times"`         // T, strictly increasing
	Symbols      []string          `json:"symbols"`       // N, canonical asset order
	FeatureNames []string          `json:"feature_names"` // K
	CostName     string            `json:"cost_name"`
	Features     []float64         `json:"features"` // row-major [T][N][K]
	Costs        []float64         `json:"costs"`    // row-major [T][N]
	Params       *StructuralParams `json:"params,omitempty"`
}

// NewTensorBundle allocates zero-filled tensors for the given index
func NewTensorBundle(times []time.Time, symbols, featureNames []string, costName string) *TensorBundle {
	t, n, k := len(times), len(symbols), len(featureNames)
	return &TensorBundle{
		Times:        slices.Clone(times),
		Symbols:      slices.Clone(symbols),
		FeatureNames: slices.Clone(featureNames),
		CostName:     costName,
		Features:     make([]float64, t*n*k),
		Costs:        make([]float64, t*n),
	}
}

// Dims returns (T, N, K)
func (b *TensorBundle) Dims() (int, int, int) {
	return len(b.Times), len(b.Symbols), len(b.FeatureNames)
}

// Feature returns features[t,n,k]
func (b *TensorBundle) Feature(t, n, k int) float64 {
	_, N, K := b.Dims()
	return b.Features[(t*N+n)*K+k]
}

// SetFeature writes features[t,n,k]
func (b *TensorBundle) SetFeature(t, n, k int, v float64) {
	_, N, K := b.Dims()
	b.Features[(t*N+n)*K+k] = v
}

// Cost returns costs[t,n]
func (b *TensorBundle) Cost(t, n int) float64 {
	return b.Costs[t*len(b.Symbols)+n]
}

// SetCost writes costs[t,n]
func (b *TensorBundle) SetCost(t, n int, v float64) {
	b.Costs[t*len(b.Symbols)+n] = v
}

// CostRow returns a copy of costs[t,:], ready to be used as an objective
func (b *TensorBundle) CostRow(t int) []float64 {
	N := len(b.Symbols)
	return slices.Clone(b.Costs[t*N : (t+1)*N])
}

// FeatureMatrix returns features[:,:,k] as a T×N matrix
func (b *TensorBundle) FeatureMatrix(k int) [][]float64 {
	T, N, _ := b.Dims()
	out := make([][]float64, T)
	for t := 0; t < T; t++ {
		out[t] = make([]float64, N)
		for n := 0; n < N; n++ {
			out[t][n] = b.Feature(t, n, k)
		}
	}
	return out
}

// Validate checks the shape and ordering invariants of the bundle
func (b *TensorBundle) Validate() error {
	T, N, K := b.Dims()
	if len(b.Features) != T*N*K {
		return fmt.Errorf("features has %d values, want %d (T=%d N=%d K=%d)", len(b.Features), T*N*K, T, N, K)
	}
	if len(b.Costs) != T*N {
		return fmt.Errorf("costs has %d values, want %d (T=%d N=%d)", len(b.Costs), T*N, T, N)
	}
	for i := 1; i < T; i++ {
		if !b.Times[i].After(b.Times[i-1]) {
			return fmt.Errorf("times not strictly increasing at index %d", i)
		}
	}
	seen := make(map[string]struct{}, N)
	for _, s := range b.Symbols {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("duplicate symbol %q", s)
		}
		seen[s] = struct{}{}
	}
	if b.Params != nil && b.Params.N != N {
		return fmt.Errorf("structural params sized for %d assets, bundle has %d", b.Params.N, N)
	}
	return nil
}
