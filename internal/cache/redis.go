package cache

import (
	"context"
	"strconv"

	redis "github.com/redis/go-redis/v9"
)

const (
	boxOnlineHash = "box:online"
)

// RedisStatusSink mirrors box liveness into a redis hash so that processes
// outside the daemon can read it.
type RedisStatusSink struct {
	client *redis.Client
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "", // No password set
		DB:       0,  // Use default DB
		Protocol: 2,  // Connection protocol
	})
}

func NewRedisStatusSink(client *redis.Client) *RedisStatusSink {
	return &RedisStatusSink{client: client}
}

func (r *RedisStatusSink) StoreStatus(ctx context.Context, boxID uint, online bool) error {
	return r.client.HSet(ctx, boxOnlineHash, strconv.FormatUint(uint64(boxID), 10), online).Err()
}

// Status returns the mirrored status of every box.
func (r *RedisStatusSink) Status(ctx context.Context) (map[uint]bool, error) {
	values, err := r.client.HGetAll(ctx, boxOnlineHash).Result()
	if err != nil {
		return nil, err
	}

	status := make(map[uint]bool, len(values))
	for k, v := range values {
		id, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			continue
		}
		online, _ := strconv.ParseBool(v)
		status[uint(id)] = online
	}

	return status, nil
}
