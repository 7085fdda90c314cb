package portfolio

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/epo/internal/contracts"
	"github.com/wonny/epo/pkg/config"
	"github.com/wonny/epo/pkg/database"
)

func TestRepository_RoundTrip(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	set := contracts.NewOptimalSet(uuid.NewString(), []time.Time{base, base.Add(time.Minute)}, []string{"BTC", "ETH"})
	set.Put(0, &contracts.Solution{X: []float64{1, 0}, Objective: 0.1, Status: contracts.StatusOptimal})
	set.Put(1, &contracts.Solution{X: []float64{0, 1}, Objective: 0.2, Status: contracts.StatusOptimal})

	repo := NewRepository(db.Pool)
	require.NoError(t, repo.SaveOptimalSet(ctx, set))

	got, err := repo.GetOptimalSet(ctx, set.RunID)
	require.NoError(t, err)
	assert.Equal(t, set.Symbols, got.Symbols)
	assert.Equal(t, set.X, got.X)
	assert.Equal(t, set.Objectives, got.Objectives)
}
