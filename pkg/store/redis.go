package store

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/evenyaru/evenyaru/pkg/config"

	"github.com/go-redis/redis/v9"
	"github.com/sasha-s/go-deadlock"
)

// How long a single Poll waits for more traffic before deciding the channel
// is quiescent.
const POLL_RECEIVE_TIMEOUT = 10 * time.Millisecond

// RedisStore implements Store on a Redis instance shared by all server
// processes.
type RedisStore struct {
	client *redis.Client
	pubsub *redis.PubSub

	mutex    deadlock.Mutex
	channels map[string]struct{}
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(settings config.RedisSettings) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     settings.Address,
		Password: settings.Password,
		DB:       settings.DB,
	})

	return &RedisStore{
		client:   client,
		pubsub:   client.Subscribe(context.Background()),
		channels: make(map[string]struct{}),
	}
}

func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, key).Result()
}

func (r *RedisStore) IncrBy(ctx context.Context, key string, amount int64) (int64, error) {
	return r.client.IncrBy(ctx, key, amount).Result()
}

func (r *RedisStore) Decr(ctx context.Context, key string) (int64, error) {
	return r.client.Decr(ctx, key).Result()
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	result, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNil
	}
	return result, err
}

func (r *RedisStore) Set(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisStore) PushSlot(ctx context.Context, key string, value string) error {
	return r.client.LPush(ctx, key, value).Err()
}

func (r *RedisStore) PopSlot(ctx context.Context, key string) (string, error) {
	result, err := r.client.RPop(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNil
	}
	return result, err
}

func (r *RedisStore) PeekSlot(ctx context.Context, key string) (string, error) {
	result, err := r.client.LIndex(ctx, key, 0).Result()
	if err == redis.Nil {
		return "", ErrNil
	}
	return result, err
}

func (r *RedisStore) RemoveSlot(ctx context.Context, key string, value string) error {
	return r.client.LRem(ctx, key, 1, value).Err()
}

func (r *RedisStore) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *RedisStore) Subscribe(ctx context.Context, channel string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	err := r.pubsub.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	r.channels[channel] = struct{}{}
	return nil
}

func (r *RedisStore) Unsubscribe(ctx context.Context, channel string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	err := r.pubsub.Unsubscribe(ctx, channel)
	if err != nil {
		return err
	}

	delete(r.channels, channel)
	return nil
}

func (r *RedisStore) Poll(ctx context.Context) ([]Message, error) {
	r.mutex.Lock()
	subscribed := len(r.channels)
	r.mutex.Unlock()

	// Receiving on a pub/sub connection with no subscriptions errors.
	if subscribed == 0 {
		return nil, nil
	}

	var messages []Message
	for {
		received, err := r.pubsub.ReceiveTimeout(ctx, POLL_RECEIVE_TIMEOUT)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return messages, nil
			}
			return messages, err
		}

		switch message := received.(type) {
		case *redis.Message:
			messages = append(messages, Message{
				Channel: message.Channel,
				Payload: []byte(message.Payload),
			})
		default:
			// Subscription confirmations and pongs carry no payload.
		}
	}
}

func (r *RedisStore) Close() error {
	r.pubsub.Close()
	return r.client.Close()
}
