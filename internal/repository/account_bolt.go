package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"chatbot-economy-api/internal/model"

	"go.etcd.io/bbolt"
)

const (
	accountBucket = "accounts"
	journalBucket = "journal"
)

// BoltAccountStore keeps one JSON document per user in a BoltDB file.
// Every write runs in a single bbolt read-write transaction, which bbolt
// serializes, so mutators always see the latest state.
type BoltAccountStore struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

// NewBoltAccountStore opens (or creates) the BoltDB file at path.
func NewBoltAccountStore(path string) (*BoltAccountStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &BoltAccountStore{db: db, path: cleanPath, now: time.Now}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *BoltAccountStore) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{accountBucket, journalBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// Get returns the account or model.ErrAccountNotFound.
func (s *BoltAccountStore) Get(ctx context.Context, userID string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, model.Unavailable("get account", err)
	}

	var acc model.Account
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(accountBucket)).Get([]byte(userID))
		if payload == nil {
			return model.ErrAccountNotFound
		}
		var err error
		acc, err = decodeAccount(payload)
		return err
	})
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return model.Account{}, err
		}
		return model.Account{}, model.Unavailable("get account", err)
	}
	return acc, nil
}

// GetOrCreate returns the account, creating it with defaults when missing.
func (s *BoltAccountStore) GetOrCreate(ctx context.Context, userID string) (model.Account, error) {
	return s.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		return acc, ErrNoChange
	})
}

// Update runs fn against the latest state, creating the account when missing.
func (s *BoltAccountStore) Update(ctx context.Context, userID string, fn MutateFunc) (model.Account, error) {
	return s.update(ctx, userID, true, fn)
}

// UpdateExisting is Update without lazy creation.
func (s *BoltAccountStore) UpdateExisting(ctx context.Context, userID string, fn MutateFunc) (model.Account, error) {
	return s.update(ctx, userID, false, fn)
}

// mutationError marks errors returned by a mutator so they are not
// reported as infrastructure failures.
type mutationError struct{ err error }

func (e mutationError) Error() string { return e.err.Error() }
func (e mutationError) Unwrap() error { return e.err }

// unwrapMutation separates domain errors from store failures.
func unwrapMutation(op string, err error) error {
	var me mutationError
	if errors.As(err, &me) {
		return me.err
	}
	if errors.Is(err, model.ErrAccountNotFound) || errors.Is(err, model.ErrStoreUnavailable) {
		return err
	}
	return model.Unavailable(op, err)
}

func (s *BoltAccountStore) update(ctx context.Context, userID string, create bool, fn MutateFunc) (model.Account, error) {
	if err := validateID(userID); err != nil {
		return model.Account{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Account{}, model.Unavailable("update account", err)
	}

	var result model.Account
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountBucket))
		current, exists, err := boltLoad(bucket, userID)
		if err != nil {
			return err
		}
		if !exists {
			if !create {
				return model.ErrAccountNotFound
			}
			current = model.NewAccount(userID, s.now())
		}

		next, write, err := applyMutation(current, fn, s.now())
		if err != nil {
			return mutationError{err}
		}
		if write || !exists {
			if err := boltSave(bucket, next); err != nil {
				return err
			}
		}
		result = next
		return nil
	})
	if err != nil {
		return model.Account{}, unwrapMutation("update account", err)
	}
	return result, nil
}

// UpdatePair mutates two distinct accounts in one transaction.
func (s *BoltAccountStore) UpdatePair(ctx context.Context, firstID, secondID string, fn PairMutateFunc) (model.Account, model.Account, error) {
	if err := validatePair(firstID, secondID); err != nil {
		return model.Account{}, model.Account{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Account{}, model.Account{}, model.Unavailable("update account pair", err)
	}

	var first, second model.Account
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(accountBucket))
		now := s.now()

		a, ok, err := boltLoad(bucket, firstID)
		if err != nil {
			return err
		}
		if !ok {
			a = model.NewAccount(firstID, now)
		}
		b, ok, err := boltLoad(bucket, secondID)
		if err != nil {
			return err
		}
		if !ok {
			b = model.NewAccount(secondID, now)
		}

		nextA, nextB, write, err := applyPair(a, b, fn, now)
		if err != nil {
			return mutationError{err}
		}
		if write {
			if err := boltSave(bucket, nextA); err != nil {
				return err
			}
			if err := boltSave(bucket, nextB); err != nil {
				return err
			}
		}
		first, second = nextA, nextB
		return nil
	})
	if err != nil {
		return model.Account{}, model.Account{}, unwrapMutation("update account pair", err)
	}
	return first, second, nil
}

func boltLoad(bucket *bbolt.Bucket, userID string) (model.Account, bool, error) {
	payload := bucket.Get([]byte(userID))
	if payload == nil {
		return model.Account{}, false, nil
	}
	acc, err := decodeAccount(payload)
	if err != nil {
		return model.Account{}, false, err
	}
	return acc, true, nil
}

func boltSave(bucket *bbolt.Bucket, acc model.Account) error {
	payload, err := encodeAccount(acc)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(acc.UserID), payload)
}

// ListIDs returns every stored user id in key order.
func (s *BoltAccountStore) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(accountBucket)).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, model.Unavailable("list accounts", err)
	}
	return ids, nil
}

// Append stores journal entries in a per-user sub-bucket keyed by sequence.
func (s *BoltAccountStore) Append(ctx context.Context, entries ...model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(journalBucket))
		for _, entry := range entries {
			userBucket, err := root.CreateBucketIfNotExists([]byte(entry.UserID))
			if err != nil {
				return fmt.Errorf("create journal bucket: %w", err)
			}
			seq, err := userBucket.NextSequence()
			if err != nil {
				return err
			}
			payload, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("marshal journal entry: %w", err)
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, seq)
			if err := userBucket.Put(key, payload); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByUser returns the newest entries of userID first.
func (s *BoltAccountStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	out := []model.JournalEntry{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket([]byte(journalBucket)).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		c := userBucket.Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(out) < limit); k, v = c.Prev() {
			var entry model.JournalEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal journal entry: %w", err)
			}
			out = append(out, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns statistics about the BoltDB file.
func (s *BoltAccountStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats["total_accounts"] = tx.Bucket([]byte(accountBucket)).Stats().KeyN
		stats["db_size_bytes"] = tx.Size()
		return nil
	})
	stats["path"] = s.path
	return stats, err
}

// Close closes the underlying BoltDB database.
func (s *BoltAccountStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ Backend = (*BoltAccountStore)(nil)
