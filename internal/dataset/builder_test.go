package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/internal/panel"
	"github.com/wonny/epo/internal/portfolio"
)

func rawPanel() *contracts.Panel {
	p := contracts.NewPanel("close", "return_30min")
	p.MustAppend(at(0), "BTC", 100, 0.01).
		MustAppend(at(0), "ETH", 10, 0.02).
		MustAppend(at(1), "BTC", 110, 0.03).
		MustAppend(at(2), "BTC", 120, -0.01).
		MustAppend(at(2), "ETH", 12, 0.00)
	return p
}

func buildConfig(key string) BuildConfig {
	return BuildConfig{
		Query: contracts.PanelQuery{From: at(0), To: at(2), Columns: []string{"close", "return_30min"}},
		Pipeline: panel.PipelineConfig{
			Fill:           panel.DefaultFillPolicy(),
			FeatureMin:     -1,
			FeatureMax:     1,
			CostColumn:     "return_30min",
			FeatureColumns: []string{"close"},
		},
		Seed:     7,
		Limits:   portfolio.DefaultRiskLimits(),
		StatsKey: key,
	}
}

func TestBuilder_Build(t *testing.T) {
	src := &staticSource{panel: rawPanel()}
	b := NewBuilder(src, nil, buildConfig(""), nil)

	bundle, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, bundle.Validate())

	T, N, K := bundle.Dims()
	assert.Equal(t, 3, T)
	assert.Equal(t, 2, N)
	assert.Equal(t, 1, K)
	assert.NotEmpty(t, bundle.RunID)
	require.NotNil(t, bundle.Params)
	assert.Equal(t, int64(7), bundle.Params.Seed)
	assert.Equal(t, 2, bundle.Params.N)
	assert.Equal(t, []string{"close", "return_30min"}, src.query.Columns)

	// ETH@1 forward-filled from ETH@0
	assert.Equal(t, 0.02, bundle.Cost(1, 1))
	assert.Equal(t, -1.0, bundle.Feature(0, 0, 0))
	assert.Equal(t, 1.0, bundle.Feature(2, 0, 0))
}

func TestBuilder_ReusesCachedStats(t *testing.T) {
	kv := newMemoryKV()
	stats := NewStatsCache(kv)

	first, err := NewBuilder(&staticSource{panel: rawPanel()}, stats, buildConfig("abc"), nil).Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, kv.data, 1)

	// a later window with higher prices is scaled by the cached training fit
	later := contracts.NewPanel("close", "return_30min")
	later.MustAppend(at(5), "BTC", 130, 0).
		MustAppend(at(5), "ETH", 11, 0)

	second, err := NewBuilder(&staticSource{panel: later}, stats, buildConfig("abc"), nil).Build(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.InDelta(t, 2.0, second.Feature(0, 0, 0), 1e-12) // (130-100)/20*2-1
	assert.InDelta(t, 0.0, second.Feature(0, 1, 0), 1e-12) // (11-10)/2*2-1
}

func TestBuilder_EmptySource(t *testing.T) {
	b := NewBuilder(&staticSource{panel: contracts.NewPanel("close", "return_30min")}, nil, buildConfig(""), nil)
	_, err := b.Build(context.Background())
	assert.Error(t, err)
}

type failingSource struct{}

var errSourceDown = errors.New("source down")

func (failingSource) LoadPanel(context.Context, contracts.PanelQuery) (*contracts.Panel, error) {
	return nil, errSourceDown
}

func TestBuilder_SourceError(t *testing.T) {
	_, err := NewBuilder(failingSource{}, nil, buildConfig(""), nil).Build(context.Background())
	assert.ErrorIs(t, err, errSourceDown)
}

func TestStatsCache_RoundTrip(t *testing.T) {
	stats := NewStatsCache(newMemoryKV())
	ctx := context.Background()

	_, found, err := stats.Load(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	s := panel.NewDefaultGroupScaler([]string{"close"})
	require.NoError(t, s.Fit(rawPanel()))
	require.NoError(t, stats.Save(ctx, "h1", s))

	restored, found, err := stats.Load(ctx, "h1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, restored.Fitted())
	want, _ := s.Stats("BTC")
	got, _ := restored.Stats("BTC")
	assert.Equal(t, want, got)

	err = stats.Save(ctx, "h2", panel.NewDefaultGroupScaler(nil))
	assert.ErrorIs(t, err, panel.ErrNotFitted)
}
