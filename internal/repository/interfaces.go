package repository

import (
	"context"
	"errors"

	"chatbot-economy-api/internal/model"
)

// ErrNoChange may be returned by a mutator to skip the write.
// The store then returns the current account without error.
var ErrNoChange = errors.New("no change")

// MutateFunc receives a private copy of the latest persisted account and
// returns the state to persist.
type MutateFunc func(acc model.Account) (model.Account, error)

// PairMutateFunc mutates two accounts inside one atomic write.
type PairMutateFunc func(first, second model.Account) (model.Account, model.Account, error)

// AccountStore is the only write path for account records.
// Implementations serialize mutators per user id and persist all-or-nothing.
type AccountStore interface {
	// Get returns the account or model.ErrAccountNotFound.
	Get(ctx context.Context, userID string) (model.Account, error)

	// GetOrCreate returns the account, creating it with defaults when missing.
	GetOrCreate(ctx context.Context, userID string) (model.Account, error)

	// Update runs fn against the latest state, creating the account when missing.
	Update(ctx context.Context, userID string, fn MutateFunc) (model.Account, error)

	// UpdateExisting is Update without lazy creation.
	UpdateExisting(ctx context.Context, userID string, fn MutateFunc) (model.Account, error)

	// UpdatePair mutates two distinct accounts atomically, creating missing ones.
	UpdatePair(ctx context.Context, firstID, secondID string, fn PairMutateFunc) (model.Account, model.Account, error)

	// ListIDs returns every stored user id.
	ListIDs(ctx context.Context) ([]string, error)

	// Close releases the underlying connection.
	Close() error
}

// JournalRepository stores per-user ledger history.
type JournalRepository interface {
	// Append persists entries in order.
	Append(ctx context.Context, entries ...model.JournalEntry) error

	// ListByUser returns the newest entries of userID first.
	ListByUser(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error)
}

// Backend is a store that also keeps the journal, as every bundled backend does.
type Backend interface {
	AccountStore
	JournalRepository

	// Stats describes the backend for the admin endpoint.
	Stats(ctx context.Context) (map[string]interface{}, error)
}
