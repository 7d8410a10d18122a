package service

import (
	"context"
	"testing"
	"time"

	"chatbot-economy-api/internal/inventory"
	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/pending"
	"chatbot-economy-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperRemovesExpiredItemsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.GetAccount(ctx, "u")
	require.NoError(t, err)
	_, err = f.svc.GrantItem(ctx, admin, "u", inventory.LuckyCharm)
	require.NoError(t, err)
	_, err = f.svc.GrantItem(ctx, admin, "u", inventory.ExpBoost)
	require.NoError(t, err)
	_, err = f.svc.GetAccount(ctx, "empty")
	require.NoError(t, err)

	sweeper := NewSweeper(f.store, nil, SweepConfig{})
	sweeper.now = func() time.Time { return f.clock.Add(25 * time.Hour) }

	before, err := f.store.Get(ctx, "u")
	require.NoError(t, err)

	result, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Accounts)
	assert.Equal(t, 1, result.Items)

	after, err := f.store.Get(ctx, "u")
	require.NoError(t, err)
	require.Len(t, after.Inventory, 1)
	assert.Equal(t, inventory.ExpBoost, after.Inventory[0].ID)
	assert.Equal(t, before.Version+1, after.Version)

	again, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Items)

	unchanged, err := f.store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, after.Version, unchanged.Version, "a no-op sweep does not write")
}

func TestSweeperExpiresStaleLoans(t *testing.T) {
	store := repository.NewMemoryAccountStore()
	tracker := pending.NewMemoryTracker(time.Hour)
	defer tracker.Close()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, tracker.Create(ctx, model.PendingLoanRequest{
		Key: "old", BorrowerID: "b", LenderID: "l", Amount: 10,
		CreatedAt: now.Add(-10 * time.Minute), ExpiresAt: now.Add(time.Hour),
	}, now))
	require.NoError(t, tracker.Create(ctx, model.PendingLoanRequest{
		Key: "fresh", BorrowerID: "b", LenderID: "l", Amount: 10,
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}, now))

	sweeper := NewSweeper(store, tracker, SweepConfig{LoanTTL: 5 * time.Minute})
	sweeper.now = func() time.Time { return now }
	result, err := sweeper.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loans)

	_, err = tracker.Get(ctx, "old", now)
	assert.ErrorIs(t, err, model.ErrRequestNotFound)
	_, err = tracker.Get(ctx, "fresh", now)
	assert.NoError(t, err)
}

func TestSweeperStartStop(t *testing.T) {
	sweeper := NewSweeper(repository.NewMemoryAccountStore(), nil, SweepConfig{Interval: 10 * time.Millisecond})
	sweeper.Start()
	sweeper.Start()
	time.Sleep(30 * time.Millisecond)
	sweeper.Stop()
	sweeper.Stop()
}
