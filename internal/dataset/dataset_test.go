package dataset

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wonny/epo/internal/contracts"
)

var base = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func at(minute int) time.Time {
	return base.Add(time.Duration(minute) * time.Minute)
}

// smallBundle has T=3, N=2, K=2 with feature value 100*t + 10*n + k
func smallBundle() *contracts.TensorBundle {
	b := contracts.NewTensorBundle(
		[]time.Time{at(0), at(1), at(2)},
		[]string{"BTC", "ETH"},
		[]string{"close", "volume"},
		"return_30min",
	)
	for t := 0; t < 3; t++ {
		for n := 0; n < 2; n++ {
			for k := 0; k < 2; k++ {
				b.SetFeature(t, n, k, float64(100*t+10*n+k))
			}
			b.SetCost(t, n, float64(t-n))
		}
	}
	return b
}

// memoryKV mimics redis.Cache JSON semantics
type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

type staticSource struct {
	panel *contracts.Panel
	query contracts.PanelQuery
}

func (s *staticSource) LoadPanel(_ context.Context, q contracts.PanelQuery) (*contracts.Panel, error) {
	s.query = q
	return s.panel.Clone(), nil
}
