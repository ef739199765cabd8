package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"privacore/internal/ratelimit/models"
)

// allowScript prunes expired members, checks the count, and records the
// request in one atomic step so concurrent callers cannot over-admit.
// KEYS[1] = bucket key, ARGV[1] = now (ms), ARGV[2] = window (ms),
// ARGV[3] = limit, ARGV[4] = unique member. Returns {allowed, count,
// oldest}. Timestamps are milliseconds: sorted-set scores are doubles, and
// millisecond epochs stay exact where nanosecond ones would not.
var allowScript = redis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, cutoff)
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[3]) then
	local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	return {0, count, tonumber(oldest[2])}
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {1, count + 1, tonumber(ARGV[1])}
`)

// RedisStore implements BucketStore on a Redis sorted set per key. Member
// scores are request timestamps, so the window slides with no boundary
// effects and the limit holds across replicas.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedis(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Allow(ctx context.Context, key string, limit int, span time.Duration) (*models.Result, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key

	// The member must be unique per request; two requests in the same
	// millisecond would otherwise collapse into one sorted-set entry.
	raw, err := allowScript.Run(ctx, s.rdb, []string{redisKey},
		now.UnixMilli(), span.Milliseconds(), limit, uuid.NewString()).Slice()
	if err != nil {
		return nil, fmt.Errorf("ratelimit check for %q: %w", key, err)
	}
	if len(raw) != 3 {
		return nil, fmt.Errorf("ratelimit check for %q: unexpected script reply", key)
	}

	allowed := toInt64(raw[0]) == 1
	count := int(toInt64(raw[1]))
	oldest := toInt64(raw[2])

	resetAt := now.Add(span)
	if oldest > 0 {
		resetAt = time.UnixMilli(oldest).Add(span)
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return &models.Result{
		Allowed:   allowed,
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, "ratelimit:"+key).Err()
}

// toInt64 handles the integer and bulk-string replies Lua scripts may
// return for numeric values. Redis formats sorted-set scores with %.17g,
// so a string reply can carry scientific notation and must be parsed as a
// float, not scanned digit-by-digit.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return int64(parsed)
	default:
		return 0
	}
}
