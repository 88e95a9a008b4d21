package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// applyScript atomically applies a clamped delta to a reputation key and
// returns {previous, current}. Running it server-side means concurrent
// updates to the same user never lose deltas.
var applyScript = redis.NewScript(`
local prev = tonumber(redis.call('GET', KEYS[1]))
if prev == nil then prev = tonumber(ARGV[2]) end
local cur = prev + tonumber(ARGV[1])
local floor = tonumber(ARGV[3])
local ceiling = tonumber(ARGV[4])
if cur < floor then cur = floor end
if cur > ceiling then cur = ceiling end
redis.call('SET', KEYS[1], cur)
return {prev, cur}
`)

// RedisReputation implements ReputationStore on a Redis backend.
type RedisReputation struct {
	Client *redis.Client
}

var _ ReputationStore = (*RedisReputation)(nil)

// InitRedis connects to Redis and returns a reputation store.
func InitRedis(addr string) (*RedisReputation, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	zap.L().Info("Connected to Redis", zap.String("addr", addr))
	return &RedisReputation{Client: client}, nil
}

// NewRedisReputation wraps an existing client, mainly for tests.
func NewRedisReputation(client *redis.Client) *RedisReputation {
	return &RedisReputation{Client: client}
}

func repKey(userID string) string {
	return fmt.Sprintf("reputation:%s", userID)
}

func (r *RedisReputation) Get(ctx context.Context, userID string) (int, bool, error) {
	v, err := r.Client.Get(ctx, repKey(userID)).Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("redis get reputation: %w", err)
	}
	return v, true, nil
}

func (r *RedisReputation) Apply(ctx context.Context, userID string, delta, start, floor, ceiling int) (int, int, error) {
	res, err := applyScript.Run(ctx, r.Client, []string{repKey(userID)}, delta, start, floor, ceiling).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("redis apply reputation: %w", err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("redis apply reputation: unexpected reply %v", res)
	}
	return int(res[0]), int(res[1]), nil
}

// Close shuts down the Redis client.
func (r *RedisReputation) Close() {
	if r != nil && r.Client != nil {
		if err := r.Client.Close(); err != nil {
			zap.L().Error("redis close", zap.Error(err))
		}
	}
}
