// Package app wires configuration into a running economy: store, Redis,
// pending tracker, journal buffer, service and sweeper.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatbot-economy-api/internal/cache"
	"chatbot-economy-api/internal/config"
	"chatbot-economy-api/internal/daily"
	"chatbot-economy-api/internal/ledger"
	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/pending"
	"chatbot-economy-api/internal/repository"
	"chatbot-economy-api/internal/service"

	"github.com/redis/go-redis/v9"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config        *config.Config
	Store         repository.Backend
	Redis         *redis.Client
	Tracker       pending.Tracker
	JournalBuffer *cache.RedisJournalBuffer
	Economy       *service.EconomyService
	Sweeper       *service.Sweeper
}

// Build opens every dependency named by cfg. On error everything opened so
// far is closed again.
func Build(cfg *config.Config) (_ *App, err error) {
	log := logging.Component("app")
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	store, err := repository.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Type, err)
	}
	a.Store = store
	log.Infof("%s account store initialized", cfg.Store.Type)

	usesRedis := strings.EqualFold(cfg.Pending.Type, "redis") || strings.EqualFold(cfg.Journal.Buffer, "redis")
	if usesRedis {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		pingErr := a.Redis.Ping(ctx).Err()
		cancel()
		if pingErr != nil {
			return nil, fmt.Errorf("redis connection failed: %w", pingErr)
		}
		log.Infof("Redis client initialized at %s", cfg.Redis.Address())
	}

	if strings.EqualFold(cfg.Pending.Type, "redis") {
		a.Tracker = pending.NewRedisTracker(a.Redis, "")
	} else {
		a.Tracker = pending.NewMemoryTracker(cfg.Economy.SweepInterval)
	}

	var journal repository.JournalRepository = a.Store
	if strings.EqualFold(cfg.Journal.Buffer, "redis") {
		a.JournalBuffer = cache.NewRedisJournalBuffer(a.Redis, a.Store, cache.RedisBufferConfig{
			FlushInterval: cfg.Journal.FlushInterval,
		})
		journal = a.JournalBuffer
	}

	loc, err := cfg.Economy.Location()
	if err != nil {
		return nil, err
	}

	a.Economy = service.NewEconomyService(a.Store, journal, a.Tracker, daily.NewGate(loc), service.EconomyConfig{
		FeeRate:        ledger.FeeRate(cfg.Economy.TransferFeeBps),
		GiftMaxAmount:  cfg.Economy.GiftMaxAmount,
		ExpPerActivity: cfg.Economy.ExpPerActivity,
		LoanTTL:        cfg.Economy.LoanTTL,
		StoreTimeout:   cfg.Store.Timeout,
	})
	a.Sweeper = service.NewSweeper(a.Store, a.Tracker, service.SweepConfig{
		Interval:     cfg.Economy.SweepInterval,
		LoanTTL:      cfg.Economy.LoanTTL,
		InitialDelay: 10 * time.Second,
	})

	return a, nil
}

// Close stops background work and releases connections. The journal
// buffer drains before the store closes.
func (a *App) Close() error {
	var errs []error
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.JournalBuffer != nil {
		errs = append(errs, a.JournalBuffer.Close())
	}
	if a.Tracker != nil {
		errs = append(errs, a.Tracker.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
