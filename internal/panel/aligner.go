package panel

import (
	"math"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/pkg/logger"
)

// FillMethod selects how gaps are imputed before the default value applies
type FillMethod string

const (
	FillForward FillMethod = "ffill" // carry the last observation of the same symbol
	FillNone    FillMethod = "none"  // default value only
)

// FillPolicy describes gap handling for the aligner
type FillPolicy struct {
	Method FillMethod
	Value  float64 // used where no prior observation exists
}

// DefaultFillPolicy forward-fills and defaults to zero
func DefaultFillPolicy() FillPolicy {
	return FillPolicy{Method: FillForward, Value: 0}
}

// Aligner places an irregular panel onto the complete time × symbol grid
// ⭐ No-lookahead: 셀 (t, s) 는 s 의 t 이하 관측치에만 의존
type Aligner struct {
	policy FillPolicy
	logger *logger.Logger
}

// NewAligner creates an aligner
func NewAligner(policy FillPolicy, log *logger.Logger) *Aligner {
	return &Aligner{policy: policy, logger: logger.OrNop(log)}
}

// Align returns one row per (timestamp, symbol) of the observed grid, sorted by (symbol, timestamp).
// Duplicate keys keep their first occurrence. Missing data never fails the call.
func (a *Aligner) Align(raw *contracts.Panel) *contracts.Panel {
	times := raw.Times()
	symbols := raw.Symbols()
	width := len(raw.Columns)

	warnDuplicates(a.logger, "align", FindDuplicates(raw))

	source := make(map[contracts.Key][]float64, raw.Len())
	for _, r := range raw.Rows {
		k := r.Key()
		if _, seen := source[k]; !seen {
			source[k] = r.Values
		}
	}

	out := contracts.NewPanel(raw.Columns...)
	out.Rows = make([]contracts.Row, 0, len(times)*len(symbols))

	last := make([]float64, width)
	for _, symbol := range symbols {
		// forward fill never crosses symbols
		for c := range last {
			last[c] = math.NaN()
		}

		for _, t := range times {
			values := make([]float64, width)
			observed := source[contracts.Key{Nanos: t.UnixNano(), Symbol: symbol}]

			for c := 0; c < width; c++ {
				v := math.NaN()
				if observed != nil {
					v = observed[c]
				}

				if !math.IsNaN(v) {
					last[c] = v
				} else if a.policy.Method == FillForward {
					v = last[c]
				}

				if math.IsNaN(v) {
					v = a.policy.Value
				}
				values[c] = v
			}

			out.Rows = append(out.Rows, contracts.Row{Time: t, Symbol: symbol, Values: values})
		}
	}

	a.logger.WithFields(map[string]interface{}{
		"input_rows": raw.Len(),
		"times":      len(times),
		"symbols":    len(symbols),
		"rows":       out.Len(),
	}).Debug("Panel aligned")

	return out
}

// GridSize is the number of rows Align produces for raw
func GridSize(raw *contracts.Panel) int {
	return len(raw.Times()) * len(raw.Symbols())
}
