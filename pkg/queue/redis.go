package queue

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisQueue implements the pipeline queues on redis lists.
type RedisQueue struct {
	client *redis.Client
}

var _ Queue = (*RedisQueue)(nil)

func NewRedisQueue(conf QueueConfigYaml) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisQueue{client: client}, nil
}

func (q *RedisQueue) Publish(ctx context.Context, topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, topic, data).Err()
}

func (q *RedisQueue) PopBatch(ctx context.Context, topic string, max int) ([][]byte, error) {
	values, err := q.client.RPopCount(ctx, topic, max).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	messages := make([][]byte, len(values))
	for i, v := range values {
		messages[i] = []byte(v)
	}
	return messages, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
