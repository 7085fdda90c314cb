package panel

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/wonny/epo/internal/contracts"
)

var (
	// ErrNotFitted is returned when Transform runs before Fit
	ErrNotFitted = errors.New("panel: scaler is not fitted")
	// ErrUnknownColumn is returned when a requested column is not in the panel
	ErrUnknownColumn = errors.New("panel: unknown column")
)

// GroupStats holds the frozen per-symbol statistics, index-aligned with the scaler's target columns
type GroupStats struct {
	Min   []float64 `json:"min"`
	Max   []float64 `json:"max"`
	Range []float64 `json:"range"`
}

// ScalerState is the serializable fit of a GroupScaler
type ScalerState struct {
	FeatureMin    float64               `json:"feature_min"`
	FeatureMax    float64               `json:"feature_max"`
	TargetColumns []string              `json:"target_columns"`
	Groups        map[string]GroupStats `json:"groups"`
}

// GroupScaler is a per-symbol min/max scaler
// ⭐ Leak-free: 통계는 Fit 에서 한 번만 계산되고 Transform 에서 재계산하지 않음
type GroupScaler struct {
	featureMin    float64
	featureMax    float64
	targetColumns []string
	groups        map[string]GroupStats
}

// NewGroupScaler creates a scaler mapping into [featureMin, featureMax].
// A nil targetColumns selects every value column of the panel passed to Fit.
func NewGroupScaler(featureMin, featureMax float64, targetColumns []string) *GroupScaler {
	return &GroupScaler{
		featureMin:    featureMin,
		featureMax:    featureMax,
		targetColumns: slices.Clone(targetColumns),
	}
}

// NewDefaultGroupScaler maps into [-1, 1]
func NewDefaultGroupScaler(targetColumns []string) *GroupScaler {
	return NewGroupScaler(-1, 1, targetColumns)
}

// FromState restores a fitted scaler
func FromState(state ScalerState) *GroupScaler {
	groups := make(map[string]GroupStats, len(state.Groups))
	for symbol, g := range state.Groups {
		groups[symbol] = GroupStats{
			Min:   slices.Clone(g.Min),
			Max:   slices.Clone(g.Max),
			Range: slices.Clone(g.Range),
		}
	}
	return &GroupScaler{
		featureMin:    state.FeatureMin,
		featureMax:    state.FeatureMax,
		targetColumns: slices.Clone(state.TargetColumns),
		groups:        groups,
	}
}

// Span returns featureMax - featureMin
func (s *GroupScaler) Span() float64 {
	return s.featureMax - s.featureMin
}

// Fitted reports whether Fit has run
func (s *GroupScaler) Fitted() bool {
	return s.groups != nil
}

// TargetColumns returns the columns being scaled
func (s *GroupScaler) TargetColumns() []string {
	return slices.Clone(s.targetColumns)
}

// State returns a copy of the fitted statistics
func (s *GroupScaler) State() (ScalerState, error) {
	if !s.Fitted() {
		return ScalerState{}, ErrNotFitted
	}
	return FromState(s.state()).state(), nil
}

func (s *GroupScaler) state() ScalerState {
	return ScalerState{
		FeatureMin:    s.featureMin,
		FeatureMax:    s.featureMax,
		TargetColumns: s.targetColumns,
		Groups:        s.groups,
	}
}

// Stats returns the frozen statistics of one symbol
func (s *GroupScaler) Stats(symbol string) (GroupStats, bool) {
	g, ok := s.groups[symbol]
	return g, ok
}

// Fit computes per-symbol min, max and range for every target column. NaN values are skipped.
func (s *GroupScaler) Fit(p *contracts.Panel) error {
	if s.targetColumns == nil {
		s.targetColumns = slices.Clone(p.Columns)
	}
	idx, err := columnIndexes(p, s.targetColumns)
	if err != nil {
		return err
	}

	groups := make(map[string]GroupStats)
	for _, r := range p.Rows {
		g, ok := groups[r.Symbol]
		if !ok {
			g = GroupStats{
				Min:   filled(len(idx), math.NaN()),
				Max:   filled(len(idx), math.NaN()),
				Range: make([]float64, len(idx)),
			}
			groups[r.Symbol] = g
		}
		for c, col := range idx {
			v := r.Values[col]
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(g.Min[c]) || v < g.Min[c] {
				g.Min[c] = v
			}
			if math.IsNaN(g.Max[c]) || v > g.Max[c] {
				g.Max[c] = v
			}
		}
	}

	for _, g := range groups {
		for c := range g.Range {
			// a column with no observations behaves like a constant one
			if math.IsNaN(g.Min[c]) {
				g.Min[c], g.Max[c], g.Range[c] = 0, 0, 0
				continue
			}
			g.Range[c] = g.Max[c] - g.Min[c]
		}
	}

	s.groups = groups
	return nil
}

// Transform scales the target columns using the frozen statistics and returns a new panel.
//
//	scaled = (x - min) / range * span + featureMin
//
// A zero range, a NaN input, or a symbol unseen at fit time yields exactly featureMin.
func (s *GroupScaler) Transform(p *contracts.Panel) (*contracts.Panel, error) {
	if !s.Fitted() {
		return nil, ErrNotFitted
	}
	idx, err := columnIndexes(p, s.targetColumns)
	if err != nil {
		return nil, err
	}

	span := s.Span()
	out := p.Clone()
	for i := range out.Rows {
		r := &out.Rows[i]
		g, seen := s.groups[r.Symbol]
		for c, col := range idx {
			if !seen {
				r.Values[col] = s.featureMin
				continue
			}
			x := r.Values[col]
			rng := g.Range[c]
			if rng == 0 || math.IsNaN(x) {
				r.Values[col] = s.featureMin
				continue
			}
			r.Values[col] = (x-g.Min[c])/rng*span + s.featureMin
		}
	}
	return out, nil
}

// FitTransform fits on p and transforms p
func (s *GroupScaler) FitTransform(p *contracts.Panel) (*contracts.Panel, error) {
	if err := s.Fit(p); err != nil {
		return nil, err
	}
	return s.Transform(p)
}

func columnIndexes(p *contracts.Panel, columns []string) ([]int, error) {
	idx := make([]int, len(columns))
	for i, name := range columns {
		pos, ok := p.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		idx[i] = pos
	}
	return idx, nil
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
