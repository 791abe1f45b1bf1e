package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultResubscribeDelay is the pause before re-subscribing after the
// change channel was closed by the server.
const DefaultResubscribeDelay = time.Second

// changesSuffix is appended to a namespace hash key to form its change channel.
const changesSuffix = ":changes"

// RedisStore implements Store on top of redis. Each namespace is a hash
// holding one JSON value per key; every mutation publishes the key on the
// namespace change channel, and subscribers re-read the whole hash.
type RedisStore struct {
	client           *redis.Client
	prefix           string
	logger           *zap.Logger
	resubscribeDelay time.Duration
}

// NewRedisStore creates a RedisStore. prefix is prepended to every redis key.
func NewRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client:           client,
		prefix:           prefix,
		logger:           logger,
		resubscribeDelay: DefaultResubscribeDelay,
	}
}

func (s *RedisStore) hashKey(namespace string) string {
	return s.prefix + namespace
}

func (s *RedisStore) channel(namespace string) string {
	return s.prefix + namespace + changesSuffix
}

// Write stores record at key and publishes a change notification in the
// same MULTI block.
func (s *RedisStore) Write(ctx context.Context, namespace, key string, record any) error {
	if err := checkArgs(namespace, key); err != nil {
		return err
	}

	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", namespace, key, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey(namespace), key, []byte(data))
		pipe.Publish(ctx, s.channel(namespace), key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", namespace, key, err)
	}

	return nil
}

// Delete removes key. A change is published only when a value was removed.
func (s *RedisStore) Delete(ctx context.Context, namespace, key string) error {
	if err := checkArgs(namespace, key); err != nil {
		return err
	}

	removed, err := s.client.HDel(ctx, s.hashKey(namespace), key).Result()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", namespace, key, err)
	}
	if removed == 0 {
		return nil
	}

	if err := s.client.Publish(ctx, s.channel(namespace), key).Err(); err != nil {
		return fmt.Errorf("delete %s/%s: publish change: %w", namespace, key, err)
	}

	return nil
}

// Fetch reads the whole namespace hash.
func (s *RedisStore) Fetch(ctx context.Context, namespace string) (Snapshot, error) {
	values, err := s.client.HGetAll(ctx, s.hashKey(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", namespace, err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	snap := make(Snapshot, len(values))
	for key, value := range values {
		snap[key] = json.RawMessage(value)
	}
	return snap, nil
}

// Subscribe listens on the namespace change channel. The subscription is
// confirmed before the initial read so no change between the two is lost.
func (s *RedisStore) Subscribe(ctx context.Context, namespace string) (<-chan Snapshot, error) {
	if namespace == "" {
		return nil, ErrInvalidNamespace
	}

	sub, err := s.subscribe(ctx, namespace)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot, 1)
	go s.run(ctx, namespace, sub, out)

	return out, nil
}

func (s *RedisStore) subscribe(ctx context.Context, namespace string) (*redis.PubSub, error) {
	sub := s.client.Subscribe(ctx, s.channel(namespace))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", namespace, err)
	}
	return sub, nil
}

func (s *RedisStore) run(ctx context.Context, namespace string, sub *redis.PubSub, out chan Snapshot) {
	defer close(out)

	for {
		if !s.deliver(ctx, namespace, out) {
			_ = sub.Close()
			return
		}

		if !s.consume(ctx, namespace, sub, out) {
			_ = sub.Close()
			return
		}
		_ = sub.Close()

		s.logger.Warn("change channel closed, resubscribing", zap.String("namespace", namespace))

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.resubscribeDelay):
			}

			var err error
			sub, err = s.subscribe(ctx, namespace)
			if err == nil {
				break
			}
			s.logger.Error("resubscribe failed", zap.String("namespace", namespace), zap.Error(err))
		}
	}
}

// consume forwards snapshots until ctx is done (false) or the channel closes (true).
func (s *RedisStore) consume(ctx context.Context, namespace string, sub *redis.PubSub, out chan Snapshot) bool {
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-ch:
			if !ok {
				return true
			}
			if !s.deliver(ctx, namespace, out) {
				return false
			}
		}
	}
}

// deliver offers the current namespace contents on out, retrying a failed
// read every resubscribeDelay. It returns false once ctx is done.
func (s *RedisStore) deliver(ctx context.Context, namespace string, out chan Snapshot) bool {
	for {
		snap, err := s.Fetch(ctx, namespace)
		if err == nil {
			offer(out, snap)
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		s.logger.Error("read namespace, retrying", zap.String("namespace", namespace), zap.Error(err))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.resubscribeDelay):
		}
	}
}
