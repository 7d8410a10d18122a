package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatbot-economy-api/internal/inventory"
	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/metrics"
	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/pending"
	"chatbot-economy-api/internal/repository"
)

// SweepConfig holds configuration for the sweeper.
type SweepConfig struct {
	// Interval is how often the sweep runs.
	// Default: 1 minute
	Interval time.Duration

	// LoanTTL is the age after which pending loan requests are dropped.
	// Default: 5 minutes
	LoanTTL time.Duration

	// InitialDelay is the wait before the first sweep after Start.
	InitialDelay time.Duration
}

// SweepResult reports what one sweep removed.
type SweepResult struct {
	Accounts int `json:"accounts_scanned"`
	Items    int `json:"expired_items"`
	Loans    int `json:"expired_loans"`
}

// Sweeper periodically drops expired inventory items and stale loan requests.
type Sweeper struct {
	store     repository.AccountStore
	tracker   pending.Tracker
	config    SweepConfig
	now       func() time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewSweeper creates a new sweeper. tracker may be nil.
func NewSweeper(store repository.AccountStore, tracker pending.Tracker, config SweepConfig) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.LoanTTL <= 0 {
		config.LoanTTL = 5 * time.Minute
	}

	return &Sweeper{
		store:   store,
		tracker: tracker,
		config:  config,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()

	logging.Component("sweeper").Infof("Started - Interval: %v, Loan TTL: %v", s.config.Interval, s.config.LoanTTL)

	go s.run()
}

func (s *Sweeper) run() {
	if s.config.InitialDelay > 0 {
		select {
		case <-time.After(s.config.InitialDelay):
			s.sweep()
		case <-s.stopCh:
			return
		}
	}

	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stopCh:
			logging.Component("sweeper").Info("Stopped")
			return
		}
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log := logging.Component("sweeper")
	result, err := s.RunNow(ctx)
	if err != nil {
		log.Errorf("Error during sweep: %v", err)
		return
	}
	if result.Items > 0 || result.Loans > 0 {
		log.Infof("Removed %d expired items and %d stale loan requests", result.Items, result.Loans)
	} else {
		log.Debug("Nothing to sweep")
	}
}

// Stop stops the sweep loop.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow performs one sweep. Running it twice in a row removes nothing
// the second time.
func (s *Sweeper) RunNow(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	now := s.now()

	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return result, err
	}

	for _, id := range ids {
		var removed int
		_, err := s.store.UpdateExisting(ctx, id, func(acc model.Account) (model.Account, error) {
			next, n := inventory.RemoveExpired(acc, now)
			removed = n
			if n == 0 {
				return acc, repository.ErrNoChange
			}
			return next, nil
		})
		if errors.Is(err, model.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return result, err
		}
		result.Accounts++
		result.Items += removed
	}

	if s.tracker != nil {
		n, err := s.tracker.Expire(ctx, now, s.config.LoanTTL)
		if err != nil {
			return result, err
		}
		result.Loans = n
	}

	metrics.RecordSweep(result.Items, result.Loans)
	return result, nil
}
