package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"chatbot-economy-api/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocs is a single-document versionedDocs. Each pending conflict makes
// one swap lose to a simulated concurrent writer.
type fakeDocs struct {
	doc       model.Account
	exists    bool
	conflicts int
	swapErr   error
	loads     int
	swaps     int
}

func (f *fakeDocs) load(ctx context.Context, userID string) (model.Account, bool, error) {
	f.loads++
	if !f.exists {
		return model.Account{}, false, nil
	}
	return f.doc.Clone(), true, nil
}

func (f *fakeDocs) swap(ctx context.Context, current, next model.Account, exists bool) error {
	f.swaps++
	if f.swapErr != nil {
		return f.swapErr
	}
	if f.conflicts > 0 {
		f.conflicts--
		if !f.exists {
			f.doc = model.NewAccount(current.UserID, casNow)
		}
		f.doc.Version++
		f.doc.Money++
		f.exists = true
		return errVersionConflict
	}
	if exists != f.exists || (exists && current.Version != f.doc.Version) {
		return errVersionConflict
	}
	f.doc = next
	f.exists = true
	return nil
}

var casNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func clockAt(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func existingDoc(money int64) *fakeDocs {
	acc := model.NewAccount("u", casNow.Add(-time.Hour))
	acc.Money = money
	acc.Version = 3
	return &fakeDocs{doc: acc, exists: true}
}

func TestCASRetriesLostRaces(t *testing.T) {
	docs := existingDoc(100)
	docs.conflicts = 2

	calls := 0
	got, err := casUpdate(context.Background(), docs, "u", true, clockAt(casNow), func(acc model.Account) (model.Account, error) {
		calls++
		acc.Money += 10
		return acc, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 3, calls, "mutator reruns on fresh state after each conflict")
	assert.Equal(t, 3, docs.swaps)
	// Two concurrent writers each added 1 before our write landed.
	assert.Equal(t, int64(112), got.Money)
	assert.Equal(t, int64(6), got.Version)
	assert.Equal(t, casNow, got.LastUpdated)
	assert.Equal(t, got, docs.doc)
}

func TestCASGivesUpAfterMaxAttempts(t *testing.T) {
	docs := existingDoc(100)
	docs.conflicts = 1000

	_, err := casUpdate(context.Background(), docs, "u", true, clockAt(casNow), addMoney(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.True(t, model.Retryable(err))
	assert.Equal(t, maxMongoAttempts, docs.swaps)
	assert.Equal(t, maxMongoAttempts, docs.loads)
}

func TestCASMissingAccount(t *testing.T) {
	docs := &fakeDocs{}
	_, err := casUpdate(context.Background(), docs, "u", false, clockAt(casNow), addMoney(5))
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
	assert.Zero(t, docs.swaps)

	got, err := casUpdate(context.Background(), docs, "u", true, clockAt(casNow), addMoney(5))
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMoney+5, got.Money)
	assert.True(t, docs.exists)
	assert.Equal(t, 1, docs.swaps)
}

func TestCASInsertRaceRetriesAsUpdate(t *testing.T) {
	docs := &fakeDocs{conflicts: 1}

	got, err := casUpdate(context.Background(), docs, "u", true, clockAt(casNow), addMoney(5))
	require.NoError(t, err)
	assert.Equal(t, 2, docs.swaps)
	// The racing insert left a stored document; the retry builds on it.
	assert.Equal(t, model.DefaultMoney+6, got.Money)
}

func TestCASNoChangeSkipsWrite(t *testing.T) {
	docs := existingDoc(100)
	got, err := casUpdate(context.Background(), docs, "u", true, clockAt(casNow), func(acc model.Account) (model.Account, error) {
		return acc, ErrNoChange
	})
	require.NoError(t, err)
	assert.Zero(t, docs.swaps)
	assert.Equal(t, int64(3), got.Version)

	// A missing account is still created, which is how GetOrCreate works.
	empty := &fakeDocs{}
	_, err = casUpdate(context.Background(), empty, "u", true, clockAt(casNow), func(acc model.Account) (model.Account, error) {
		return acc, ErrNoChange
	})
	require.NoError(t, err)
	assert.True(t, empty.exists)
}

func TestCASMutatorErrorWritesNothing(t *testing.T) {
	docs := existingDoc(100)
	_, err := casUpdate(context.Background(), docs, "u", true, clockAt(casNow), func(acc model.Account) (model.Account, error) {
		return acc, model.ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)
	assert.Zero(t, docs.swaps)
	assert.Equal(t, int64(100), docs.doc.Money)
}

func TestCASStoreFailureIsNotRetried(t *testing.T) {
	docs := existingDoc(100)
	docs.swapErr = model.Unavailable("replace account", errors.New("connection reset"))

	_, err := casUpdate(context.Background(), docs, "u", true, clockAt(casNow), addMoney(5))
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.Equal(t, 1, docs.swaps)
}

// mongoStore connects to MONGODB_URI, which must be a replica set for
// UpdatePair transactions. Each test gets its own database.
func mongoStore(t *testing.T) *MongoAccountStore {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}

	name := fmt.Sprintf("economy_test_%d", time.Now().UnixNano())
	store, err := NewMongoAccountStore(uri, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.db.Drop(ctx)
		_ = store.Close()
	})
	return store
}

func TestMongoUpdateAndGet(t *testing.T) {
	store := mongoStore(t)
	ctx := context.Background()

	_, err := store.UpdateExisting(ctx, "u", addMoney(5))
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	created, err := store.GetOrCreate(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMoney, created.Money)

	updated, err := store.Update(ctx, "u", addMoney(25))
	require.NoError(t, err)
	assert.Equal(t, created.Version+1, updated.Version)

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMoney+25, got.Money)
}

func TestMongoConcurrentUpdatesLoseNothing(t *testing.T) {
	store := mongoStore(t)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "u")
	require.NoError(t, err)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "u", addMoney(1))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, model.ErrStoreUnavailable)
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMoney+succeeded, got.Money, "every reported success is stored exactly once")
}

func TestMongoUpdatePairAndJournal(t *testing.T) {
	store := mongoStore(t)
	ctx := context.Background()

	a, b, err := store.UpdatePair(ctx, "a", "b", func(from, to model.Account) (model.Account, model.Account, error) {
		from.Money -= 40
		to.Money += 40
		return from, to, nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMoney-40, a.Money)
	assert.Equal(t, model.DefaultMoney+40, b.Money)

	_, _, err = store.UpdatePair(ctx, "a", "b", func(from, to model.Account) (model.Account, model.Account, error) {
		return from, to, model.ErrInsufficientFunds
	})
	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMoney-40, got.Money)

	require.NoError(t, store.Append(ctx,
		model.JournalEntry{ID: "1", UserID: "a", Type: model.EntryTransferOut, Amount: -40, CreatedAt: casNow},
		model.JournalEntry{ID: "2", UserID: "a", Type: model.EntryDeposit, Amount: -10, CreatedAt: casNow.Add(time.Minute)},
	))
	entries, err := store.ListByUser(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2", entries[0].ID)
}
