package queue

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"
)

// RedisNotifier appends events to a redis list.
type RedisNotifier struct {
	client *redis.Client
	key    string
}

func NewRedisNotifier(client *redis.Client, key string) *RedisNotifier {
	if key == "" {
		key = DatasetEventQueue
	}
	return &RedisNotifier{client: client, key: key}
}

func (r *RedisNotifier) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, r.key, data).Err()
}
