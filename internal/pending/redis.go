package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces tracker keys in Redis.
const DefaultKeyPrefix = "economy:loan"

// createScript stores a request unless a live one holds the key.
// KEYS[1] request hash, KEYS[2] index
// ARGV: lender, payload, ttl ms (0 = none), score, request key, expires ms (0 = never), now ms
var createScript = redis.NewScript(`
	local expires = tonumber(redis.call("HGET", KEYS[1], "expires") or "-1")
	if expires == 0 or (expires > 0 and tonumber(ARGV[7]) < expires) then
		return 0
	end
	redis.call("DEL", KEYS[1])
	redis.call("HSET", KEYS[1], "lender", ARGV[1], "data", ARGV[2], "expires", ARGV[6])
	if tonumber(ARGV[3]) > 0 then
		redis.call("PEXPIRE", KEYS[1], ARGV[3])
	end
	redis.call("ZADD", KEYS[2], ARGV[4], ARGV[5])
	return 1
`)

// consumeScript is an atomic test-and-delete. Expiry is checked before the
// lender rule so a stale request is missing for every actor.
// ARGV: actor, request key, now ms
// Returns {0} missing, {2} wrong actor, {1, payload} consumed.
var consumeScript = redis.NewScript(`
	local fields = redis.call("HMGET", KEYS[1], "lender", "expires")
	local lender = fields[1]
	if not lender then
		redis.call("ZREM", KEYS[2], ARGV[2])
		return {0}
	end
	local expires = tonumber(fields[2] or "0")
	if expires > 0 and tonumber(ARGV[3]) >= expires then
		redis.call("DEL", KEYS[1])
		redis.call("ZREM", KEYS[2], ARGV[2])
		return {0}
	end
	if lender ~= ARGV[1] then
		return {2}
	end
	local data = redis.call("HGET", KEYS[1], "data")
	redis.call("DEL", KEYS[1])
	redis.call("ZREM", KEYS[2], ARGV[2])
	return {1, data}
`)

// RedisTracker keeps each request in its own hash with a TTL and indexes
// keys by creation time in a sorted set for Expire.
type RedisTracker struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTracker creates a Redis-backed tracker on an existing client.
func NewRedisTracker(client *redis.Client, keyPrefix string) *RedisTracker {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	logging.Component("pending-redis").Infof("Using Redis pending tracker, prefix:%s", keyPrefix)
	return &RedisTracker{client: client, keyPrefix: keyPrefix}
}

func (t *RedisTracker) requestKey(key string) string {
	return t.keyPrefix + ":req:" + key
}

func (t *RedisTracker) indexKey() string {
	return t.keyPrefix + ":index"
}

// Create stores req with a TTL derived from its expiry.
func (t *RedisTracker) Create(ctx context.Context, req model.PendingLoanRequest, now time.Time) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to serialize request: %w", err)
	}

	var ttl time.Duration
	var expires int64
	if !req.ExpiresAt.IsZero() {
		expires = req.ExpiresAt.UnixMilli()
		ttl = req.ExpiresAt.Sub(now)
		if ttl < time.Millisecond {
			ttl = time.Millisecond
		}
	}

	created, err := createScript.Run(ctx, t.client,
		[]string{t.requestKey(req.Key), t.indexKey()},
		req.LenderID, payload, ttl.Milliseconds(), req.CreatedAt.UnixMilli(), req.Key, expires, now.UnixMilli(),
	).Int()
	if err != nil {
		return model.Unavailable("create pending request", err)
	}
	if created == 0 {
		return model.ErrDuplicateRequest
	}
	return nil
}

// Get returns a live request.
func (t *RedisTracker) Get(ctx context.Context, key string, now time.Time) (model.PendingLoanRequest, error) {
	payload, err := t.client.HGet(ctx, t.requestKey(key), "data").Bytes()
	if err == redis.Nil {
		return model.PendingLoanRequest{}, model.ErrRequestNotFound
	}
	if err != nil {
		return model.PendingLoanRequest{}, model.Unavailable("get pending request", err)
	}

	req, err := decodeRequest(payload)
	if err != nil {
		return model.PendingLoanRequest{}, err
	}
	if expired(req, now) {
		return model.PendingLoanRequest{}, model.ErrRequestNotFound
	}
	return req, nil
}

// Consume removes and returns the request if actorID is its lender.
func (t *RedisTracker) Consume(ctx context.Context, key, actorID string, now time.Time) (model.PendingLoanRequest, error) {
	res, err := consumeScript.Run(ctx, t.client,
		[]string{t.requestKey(key), t.indexKey()},
		actorID, key, now.UnixMilli(),
	).Slice()
	if err != nil {
		return model.PendingLoanRequest{}, model.Unavailable("consume pending request", err)
	}
	if len(res) == 0 {
		return model.PendingLoanRequest{}, model.ErrRequestNotFound
	}

	status, _ := res[0].(int64)
	switch status {
	case 2:
		return model.PendingLoanRequest{}, model.ErrUnauthorized
	case 1:
		payload, _ := res[1].(string)
		return decodeRequest([]byte(payload))
	default:
		return model.PendingLoanRequest{}, model.ErrRequestNotFound
	}
}

// Expire deletes requests created more than maxAge before now. Requests
// past their own expiry are already gone through the hash TTL.
func (t *RedisTracker) Expire(ctx context.Context, now time.Time, maxAge time.Duration) (int, error) {
	olderThan := now.Add(-maxAge)
	keys, err := t.client.ZRangeByScore(ctx, t.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(olderThan.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, model.Unavailable("scan pending index", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := t.client.Pipeline()
	dels := make([]*redis.IntCmd, 0, len(keys))
	for _, key := range keys {
		dels = append(dels, pipe.Del(ctx, t.requestKey(key)))
		pipe.ZRem(ctx, t.indexKey(), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, model.Unavailable("expire pending requests", err)
	}

	removed := 0
	for _, cmd := range dels {
		removed += int(cmd.Val())
	}
	if removed > 0 {
		logging.Component("pending-redis").Infof("Expired %d pending requests", removed)
	}
	return removed, nil
}

// Close is a no-op; the client is owned by the caller.
func (t *RedisTracker) Close() error {
	return nil
}

func decodeRequest(payload []byte) (model.PendingLoanRequest, error) {
	var req model.PendingLoanRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return model.PendingLoanRequest{}, fmt.Errorf("failed to parse pending request: %w", err)
	}
	return req, nil
}

var _ Tracker = (*RedisTracker)(nil)
