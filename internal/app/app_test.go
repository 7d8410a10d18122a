package app

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"chatbot-economy-api/internal/config"
	"chatbot-economy-api/internal/pending"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Type = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "data", "economy.db")
	cfg.Store.Timeout = time.Second
	cfg.Pending.Type = "memory"
	cfg.Journal.Buffer = "none"
	cfg.Journal.FlushInterval = time.Hour
	cfg.Economy.TransferFeeBps = 500
	cfg.Economy.GiftMaxAmount = 10000
	cfg.Economy.ExpPerActivity = 5
	cfg.Economy.LoanTTL = time.Minute
	cfg.Economy.SweepInterval = time.Minute
	cfg.Economy.DailyTimezone = "UTC"
	return cfg
}

func TestBuildSQLite(t *testing.T) {
	a, err := Build(baseConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Redis)
	assert.IsType(t, &pending.MemoryTracker{}, a.Tracker)

	ctx := context.Background()
	_, err = a.Economy.Transfer(ctx, "a", "b", 50)
	require.NoError(t, err)

	entries, err := a.Economy.Journal(ctx, "a", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuildWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig(t)
	cfg.Pending.Type = "redis"
	cfg.Journal.Buffer = "redis"
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = mustPort(t, mr.Port())

	a, err := Build(cfg)
	require.NoError(t, err)
	assert.IsType(t, &pending.RedisTracker{}, a.Tracker)
	require.NotNil(t, a.JournalBuffer)

	ctx := context.Background()
	_, err = a.Economy.Deposit(ctx, "u", 10)
	require.NoError(t, err)

	queued, err := a.JournalBuffer.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)

	// Close drains the buffer into the store before closing it; reopen to check.
	require.NoError(t, a.Close())

	cfg.Pending.Type = "memory"
	cfg.Journal.Buffer = "none"
	reopened, err := Build(cfg)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.Economy.Journal(ctx, "u", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBuildFailsWithoutRedis(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Pending.Type = "redis"
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = 1

	_, err := Build(cfg)
	assert.Error(t, err)
}

func mustPort(t *testing.T, port string) int {
	t.Helper()
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return n
}
