package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/model"
	"chatbot-economy-api/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Buffer configuration
const (
	MaxBatchSize  = 100
	FlushTimeout  = 30 * time.Second
	DrainTimeout  = 2 * time.Minute
	DefaultPrefix = "economy:journal"
)

// RedisJournalBuffer is a write-behind buffer for journal entries.
// Entries are pushed to a Redis list and moved to the journal repository
// in batches by a background flusher. Reads go straight to the repository,
// so recently appended entries become visible after the next flush.
type RedisJournalBuffer struct {
	client      *redis.Client
	sink        repository.JournalRepository
	flushTicker *time.Ticker
	stopFlush   chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
	keyPrefix   string
}

// RedisBufferConfig holds configuration for the Redis buffer.
type RedisBufferConfig struct {
	FlushInterval time.Duration
	KeyPrefix     string
}

// NewRedisJournalBuffer starts a buffer in front of sink.
func NewRedisJournalBuffer(client *redis.Client, sink repository.JournalRepository, cfg RedisBufferConfig) *RedisJournalBuffer {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = DefaultPrefix
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	b := &RedisJournalBuffer{
		client:      client,
		sink:        sink,
		flushTicker: time.NewTicker(interval),
		stopFlush:   make(chan struct{}),
		done:        make(chan struct{}),
		keyPrefix:   keyPrefix,
	}

	go b.backgroundFlush()

	logging.Component("journal-buffer").Infof("Started - prefix:%s, flush:%v, batch:%d", keyPrefix, interval, MaxBatchSize)
	return b
}

func (b *RedisJournalBuffer) queueKey() string {
	return b.keyPrefix + ":queue"
}

// Append queues entries for the next flush.
func (b *RedisJournalBuffer) Append(ctx context.Context, entries ...model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	return b.client.RPush(ctx, b.queueKey(), values...).Err()
}

// ListByUser reads from the underlying repository.
func (b *RedisJournalBuffer) ListByUser(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	return b.sink.ListByUser(ctx, userID, limit)
}

// Count returns the number of queued entries.
func (b *RedisJournalBuffer) Count(ctx context.Context) (int64, error) {
	return b.client.LLen(ctx, b.queueKey()).Result()
}

// FlushBatch writes up to MaxBatchSize queued entries to the repository.
// Entries are only removed from the queue after the repository accepted them.
func (b *RedisJournalBuffer) FlushBatch(ctx context.Context) (int, error) {
	raw, err := b.client.LRange(ctx, b.queueKey(), 0, MaxBatchSize-1).Result()
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	log := logging.Component("journal-buffer")
	entries := make([]model.JournalEntry, 0, len(raw))
	for _, item := range raw {
		var e model.JournalEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			log.Warnf("Dropping malformed entry: %v", err)
			continue
		}
		entries = append(entries, e)
	}

	if len(entries) > 0 {
		if err := b.sink.Append(ctx, entries...); err != nil {
			log.Errorf("Flush error: %v", err)
			return 0, err
		}
	}

	// Only this flusher pops, and producers only push to the tail, so the
	// first len(raw) items are exactly the ones just written.
	if err := b.client.LTrim(ctx, b.queueKey(), int64(len(raw)), -1).Err(); err != nil {
		log.Errorf("Error trimming queue: %v", err)
		return len(entries), err
	}

	log.Debugf("Flushed %d entries", len(entries))
	return len(raw), nil
}

// Flush drains the queue.
func (b *RedisJournalBuffer) Flush(ctx context.Context) error {
	for {
		n, err := b.FlushBatch(ctx)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

func (b *RedisJournalBuffer) backgroundFlush() {
	defer close(b.done)
	log := logging.Component("journal-buffer")

	for {
		select {
		case <-b.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
			if _, err := b.FlushBatch(ctx); err != nil {
				log.Errorf("Background flush error: %v", err)
			}
			cancel()
		case <-b.stopFlush:
			log.Info("Shutdown: flushing remaining entries...")
			ctx, cancel := context.WithTimeout(context.Background(), DrainTimeout)
			if err := b.Flush(ctx); err != nil {
				log.Errorf("Shutdown flush error: %v", err)
			}
			cancel()
			log.Info("Shutdown flush complete")
			return
		}
	}
}

// Close stops the flusher after draining the queue. The client is owned
// by the caller.
func (b *RedisJournalBuffer) Close() error {
	b.stopOnce.Do(func() {
		b.flushTicker.Stop()
		close(b.stopFlush)
	})
	<-b.done
	return nil
}

var _ repository.JournalRepository = (*RedisJournalBuffer)(nil)
