package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/epo/internal/contracts"
)

func TestWindow_ZeroPadsBeforeStart(t *testing.T) {
	b := smallBundle()

	w, err := Window(b, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0, 0, 0, 0, // padding
		0, 1, 10, 11, // t=0
	}, w)
}

func TestWindow_NoLookahead(t *testing.T) {
	b := smallBundle()

	w, err := Window(b, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{
		0, 1, 10, 11,
		100, 101, 110, 111,
	}, w)
	for _, v := range w {
		assert.Less(t, v, 200.0)
	}
}

func TestWindow_Errors(t *testing.T) {
	b := smallBundle()

	_, err := Window(b, 3, 2)
	assert.Error(t, err)
	_, err = Window(b, 0, 0)
	assert.Error(t, err)
}

func TestOptDataset_Sample(t *testing.T) {
	b := smallBundle()
	opt := contracts.NewOptimalSet("run", b.Times, b.Symbols)
	opt.Put(2, &contracts.Solution{X: []float64{1, 0}, Objective: 2, Status: contracts.StatusOptimal})

	ds, err := NewOptDataset(b, opt, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	s, err := ds.Sample(2)
	require.NoError(t, err)
	assert.Len(t, s.Window, 12)
	assert.Equal(t, []float64{2, 1}, s.Costs)
	assert.Equal(t, []float64{1, 0}, s.Optimal)
	assert.Equal(t, 2.0, s.Objective)
}

func TestNewOptDataset_Mismatch(t *testing.T) {
	b := smallBundle()

	_, err := NewOptDataset(b, contracts.NewOptimalSet("run", b.Times[:2], b.Symbols), 1)
	assert.Error(t, err)

	_, err = NewOptDataset(b, contracts.NewOptimalSet("run", b.Times, []string{"ETH", "BTC"}), 1)
	assert.Error(t, err)
}
