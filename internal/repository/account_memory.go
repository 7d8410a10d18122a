package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatbot-economy-api/internal/model"
)

// MemoryAccountStore keeps accounts in process memory.
// Use this for development/testing or single-instance deployments.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
	locks    map[string]chan struct{}

	journalMu sync.RWMutex
	journal   []model.JournalEntry

	now func() time.Time
}

// NewMemoryAccountStore creates an empty in-memory store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts: make(map[string]model.Account),
		locks:    make(map[string]chan struct{}),
		now:      time.Now,
	}
}

// lockFor returns the per-user lock, creating it on first use.
func (s *MemoryAccountStore) lockFor(userID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[userID]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[userID] = l
	}
	return l
}

// acquire takes the user locks in id order, giving up when ctx is done.
func (s *MemoryAccountStore) acquire(ctx context.Context, ids ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, model.Unavailable("acquire account lock", err)
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	held := make([]chan struct{}, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}
	for _, id := range sorted {
		l := s.lockFor(id)
		select {
		case l <- struct{}{}:
			held = append(held, l)
		case <-ctx.Done():
			release()
			return nil, model.Unavailable("acquire account lock", ctx.Err())
		}
	}
	return release, nil
}

func (s *MemoryAccountStore) load(userID string) (model.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	return acc, ok
}

func (s *MemoryAccountStore) save(accs ...model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range accs {
		s.accounts[acc.UserID] = acc.Clone()
	}
}

// Get returns the account or model.ErrAccountNotFound.
func (s *MemoryAccountStore) Get(ctx context.Context, userID string) (model.Account, error) {
	if err := ctx.Err(); err != nil {
		return model.Account{}, model.Unavailable("get account", err)
	}
	acc, ok := s.load(userID)
	if !ok {
		return model.Account{}, model.ErrAccountNotFound
	}
	return acc.Clone(), nil
}

// GetOrCreate returns the account, creating it with defaults when missing.
func (s *MemoryAccountStore) GetOrCreate(ctx context.Context, userID string) (model.Account, error) {
	return s.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		return acc, ErrNoChange
	})
}

// Update runs fn against the latest state, creating the account when missing.
func (s *MemoryAccountStore) Update(ctx context.Context, userID string, fn MutateFunc) (model.Account, error) {
	return s.update(ctx, userID, true, fn)
}

// UpdateExisting is Update without lazy creation.
func (s *MemoryAccountStore) UpdateExisting(ctx context.Context, userID string, fn MutateFunc) (model.Account, error) {
	return s.update(ctx, userID, false, fn)
}

func (s *MemoryAccountStore) update(ctx context.Context, userID string, create bool, fn MutateFunc) (model.Account, error) {
	if err := validateID(userID); err != nil {
		return model.Account{}, err
	}
	release, err := s.acquire(ctx, userID)
	if err != nil {
		return model.Account{}, err
	}
	defer release()

	current, exists := s.load(userID)
	if !exists {
		if !create {
			return model.Account{}, model.ErrAccountNotFound
		}
		current = model.NewAccount(userID, s.now())
	}

	next, write, err := applyMutation(current, fn, s.now())
	if err != nil {
		return model.Account{}, err
	}
	if write || !exists {
		s.save(next)
	}
	return next.Clone(), nil
}

// UpdatePair mutates two distinct accounts atomically, creating missing ones.
func (s *MemoryAccountStore) UpdatePair(ctx context.Context, firstID, secondID string, fn PairMutateFunc) (model.Account, model.Account, error) {
	if err := validatePair(firstID, secondID); err != nil {
		return model.Account{}, model.Account{}, err
	}
	release, err := s.acquire(ctx, firstID, secondID)
	if err != nil {
		return model.Account{}, model.Account{}, err
	}
	defer release()

	now := s.now()
	first, ok := s.load(firstID)
	if !ok {
		first = model.NewAccount(firstID, now)
	}
	second, ok := s.load(secondID)
	if !ok {
		second = model.NewAccount(secondID, now)
	}

	nextFirst, nextSecond, write, err := applyPair(first, second, fn, now)
	if err != nil {
		return model.Account{}, model.Account{}, err
	}
	if write {
		s.save(nextFirst, nextSecond)
	}
	return nextFirst.Clone(), nextSecond.Clone(), nil
}

// ListIDs returns every stored user id in lexical order.
func (s *MemoryAccountStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Append stores journal entries.
func (s *MemoryAccountStore) Append(ctx context.Context, entries ...model.JournalEntry) error {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()
	s.journal = append(s.journal, entries...)
	return nil
}

// ListByUser returns the newest entries of userID first.
func (s *MemoryAccountStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	s.journalMu.RLock()
	defer s.journalMu.RUnlock()

	out := []model.JournalEntry{}
	for i := len(s.journal) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.journal[i].UserID == userID {
			out = append(out, s.journal[i])
		}
	}
	return out, nil
}

// Stats returns statistics about the in-memory store.
func (s *MemoryAccountStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	accounts := len(s.accounts)
	s.mu.RUnlock()

	s.journalMu.RLock()
	entries := len(s.journal)
	s.journalMu.RUnlock()

	return map[string]interface{}{
		"total_accounts":  accounts,
		"journal_entries": entries,
	}, nil
}

// Close is a no-op.
func (s *MemoryAccountStore) Close() error {
	return nil
}

var _ Backend = (*MemoryAccountStore)(nil)
