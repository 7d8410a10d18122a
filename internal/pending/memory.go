package pending

import (
	"context"
	"sync"
	"time"

	"chatbot-economy-api/internal/model"
)

// MemoryTracker is an in-memory implementation of Tracker.
// Use this for development/testing or single-instance deployments.
type MemoryTracker struct {
	mu      sync.Mutex
	entries map[string]model.PendingLoanRequest

	// now drives only the background janitor.
	now             func() time.Time
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// NewMemoryTracker creates a tracker that drops expired requests every interval.
func NewMemoryTracker(cleanupInterval time.Duration) *MemoryTracker {
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	t := &MemoryTracker{
		entries:         make(map[string]model.PendingLoanRequest),
		now:             time.Now,
		cleanupInterval: cleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	go t.cleanup()

	return t
}

func expired(req model.PendingLoanRequest, now time.Time) bool {
	return !req.ExpiresAt.IsZero() && !now.Before(req.ExpiresAt)
}

// Create stores a new request.
func (t *MemoryTracker) Create(ctx context.Context, req model.PendingLoanRequest, now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.entries[req.Key]; ok && !expired(existing, now) {
		return model.ErrDuplicateRequest
	}
	t.entries[req.Key] = req
	return nil
}

// Get returns a live request.
func (t *MemoryTracker) Get(ctx context.Context, key string, now time.Time) (model.PendingLoanRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.entries[key]
	if !ok || expired(req, now) {
		return model.PendingLoanRequest{}, model.ErrRequestNotFound
	}
	return req, nil
}

// Consume removes and returns the request if actorID is its lender.
func (t *MemoryTracker) Consume(ctx context.Context, key, actorID string, now time.Time) (model.PendingLoanRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.entries[key]
	if ok && expired(req, now) {
		delete(t.entries, key)
		ok = false
	}
	if !ok {
		return model.PendingLoanRequest{}, model.ErrRequestNotFound
	}
	if req.LenderID != actorID {
		return model.PendingLoanRequest{}, model.ErrUnauthorized
	}
	delete(t.entries, key)
	return req, nil
}

// Expire removes requests older than maxAge, plus any past their expiry.
func (t *MemoryTracker) Expire(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	olderThan := now.Add(-maxAge)
	removed := 0
	for key, req := range t.entries {
		if req.CreatedAt.Before(olderThan) || expired(req, now) {
			delete(t.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored requests, expired or not.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close stops the background cleanup goroutine.
func (t *MemoryTracker) Close() error {
	t.stopOnce.Do(func() { close(t.stopCleanup) })
	return nil
}

// cleanup periodically removes expired entries.
func (t *MemoryTracker) cleanup() {
	ticker := time.NewTicker(t.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.removeExpired()
		case <-t.stopCleanup:
			return
		}
	}
}

func (t *MemoryTracker) removeExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, req := range t.entries {
		if expired(req, now) {
			delete(t.entries, key)
		}
	}
}

var _ Tracker = (*MemoryTracker)(nil)
