package pending

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chatbot-economy-api/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	tracker Tracker
}

func trackers(t *testing.T) map[string]func(t *testing.T) fixture {
	return map[string]func(t *testing.T) fixture{
		"memory": func(t *testing.T) fixture {
			tr := NewMemoryTracker(time.Hour)
			t.Cleanup(func() { _ = tr.Close() })
			return fixture{tracker: tr}
		},
		"redis": func(t *testing.T) fixture {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return fixture{tracker: NewRedisTracker(client, "test:loan")}
		},
	}
}

func forEachTracker(t *testing.T, fn func(t *testing.T, f fixture)) {
	for name, build := range trackers(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, build(t))
		})
	}
}

func request(key string) model.PendingLoanRequest {
	return model.PendingLoanRequest{
		Key:        key,
		BorrowerID: "borrower",
		LenderID:   "lender",
		Amount:     250,
		CreatedAt:  base,
		ExpiresAt:  base.Add(5 * time.Minute),
	}
}

func TestCreateAndGet(t *testing.T) {
	forEachTracker(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		require.NoError(t, f.tracker.Create(ctx, request("k1"), base))

		got, err := f.tracker.Get(ctx, "k1", base)
		require.NoError(t, err)
		assert.Equal(t, "lender", got.LenderID)
		assert.Equal(t, int64(250), got.Amount)

		err = f.tracker.Create(ctx, request("k1"), base)
		assert.ErrorIs(t, err, model.ErrDuplicateRequest)

		_, err = f.tracker.Get(ctx, "missing", base)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
	})
}

func TestConsumeOnlyByLender(t *testing.T) {
	forEachTracker(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		require.NoError(t, f.tracker.Create(ctx, request("k2"), base))

		_, err := f.tracker.Consume(ctx, "k2", "borrower", base)
		assert.ErrorIs(t, err, model.ErrUnauthorized)

		// Still there after the rejected attempt.
		_, err = f.tracker.Get(ctx, "k2", base)
		require.NoError(t, err)

		got, err := f.tracker.Consume(ctx, "k2", "lender", base)
		require.NoError(t, err)
		assert.Equal(t, "k2", got.Key)

		_, err = f.tracker.Consume(ctx, "k2", "lender", base)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
	})
}

func TestConcurrentConsumeSucceedsOnce(t *testing.T) {
	forEachTracker(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		require.NoError(t, f.tracker.Create(ctx, request("k3"), base))

		var wins, notFound int32
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.tracker.Consume(ctx, "k3", "lender", base)
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
				case errors.Is(err, model.ErrRequestNotFound):
					atomic.AddInt32(&notFound, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins)
		assert.Equal(t, int32(24), notFound)
	})
}

func TestExpiredRequestsAreInvisible(t *testing.T) {
	forEachTracker(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		require.NoError(t, f.tracker.Create(ctx, request("k4"), base))

		later := base.Add(5 * time.Minute)
		_, err := f.tracker.Get(ctx, "k4", later)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
		_, err = f.tracker.Consume(ctx, "k4", "lender", later)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)

		// The key is free again once the old request is past its expiry.
		require.NoError(t, f.tracker.Create(ctx, request("k4"), later))
	})
}

func TestExpiredRequestIsMissingForEveryActor(t *testing.T) {
	forEachTracker(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		require.NoError(t, f.tracker.Create(ctx, request("k7"), base))

		later := base.Add(6 * time.Minute)
		_, err := f.tracker.Consume(ctx, "k7", "borrower", later)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
		_, err = f.tracker.Consume(ctx, "k7", "lender", later)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
	})
}

func TestRequestWithoutExpiryStaysLive(t *testing.T) {
	forEachTracker(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		req := request("k8")
		req.ExpiresAt = time.Time{}
		require.NoError(t, f.tracker.Create(ctx, req, base))

		far := base.Add(365 * 24 * time.Hour)
		_, err := f.tracker.Get(ctx, "k8", far)
		require.NoError(t, err)
		assert.ErrorIs(t, f.tracker.Create(ctx, req, far), model.ErrDuplicateRequest)
	})
}

func TestExpireOlderThan(t *testing.T) {
	forEachTracker(t, func(t *testing.T, f fixture) {
		ctx := context.Background()
		old := request("old")
		fresh := request("fresh")
		fresh.CreatedAt = base.Add(2 * time.Minute)
		require.NoError(t, f.tracker.Create(ctx, old, base))
		require.NoError(t, f.tracker.Create(ctx, fresh, base))

		removed, err := f.tracker.Expire(ctx, base.Add(3*time.Minute), 2*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		_, err = f.tracker.Get(ctx, "old", base)
		assert.ErrorIs(t, err, model.ErrRequestNotFound)
		_, err = f.tracker.Get(ctx, "fresh", base)
		assert.NoError(t, err)
	})
}

func TestRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	tr := NewRedisTracker(client, "")
	mr.Close()

	err := tr.Create(context.Background(), request("k5"), base)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestMemoryJanitorDropsExpired(t *testing.T) {
	tr := NewMemoryTracker(10 * time.Millisecond)
	defer tr.Close()

	req := request("k6")
	req.CreatedAt = time.Now()
	req.ExpiresAt = time.Now().Add(-time.Second)
	tr.mu.Lock()
	tr.entries[req.Key] = req
	tr.mu.Unlock()

	assert.Eventually(t, func() bool { return tr.Len() == 0 }, time.Second, 5*time.Millisecond)
}
