package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tailored-agentic-units/flora/core/protocol"
)

const defaultRedisPrefix = "flora:session:"

// RedisStore keeps each transcript in a Redis list, one JSON-encoded turn
// per element.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A positive ttl refreshes the
// session key's expiry on every append, so idle sessions are evicted.
func NewRedisStore(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Messages(ctx context.Context, id string) ([]protocol.Message, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	raw, err := s.rdb.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}

	msgs := make([]protocol.Message, 0, len(raw))
	for i, item := range raw {
		var msg protocol.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("%w: %s: decode turn %d: %v", ErrStoreFailed, id, i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, msgs ...protocol.Message) error {
	if id == "" {
		return ErrEmptyID
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("%w: %s: encode turn: %v", ErrStoreFailed, id, err)
		}
		values = append(values, data)
	}

	key := s.key(id)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStoreFailed, id, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
