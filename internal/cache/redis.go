package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "fitfusion:snapshot:"

// RedisStore keeps snapshots in Redis so several instances can share them.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

type redisSnapshot struct {
	ComputedAt time.Time `json:"computed_at"`
	Payload    []byte    `json:"payload"`
}

// NewRedisStore wraps an existing client. A zero ttl keeps snapshots forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// DialRedisStore connects to addr and verifies the connection with PING.
func DialRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return NewRedisStore(rdb, ttl), nil
}

// Load returns the snapshot stored under key.
func (s *RedisStore) Load(ctx context.Context, key string) (Snapshot, bool, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("loading snapshot %s from redis: %w", key, err)
	}

	var rs redisSnapshot
	if err := json.Unmarshal(raw, &rs); err != nil {
		return Snapshot{}, false, fmt.Errorf("decoding snapshot %s: %w", key, err)
	}
	return Snapshot{Key: key, Payload: rs.Payload, ComputedAt: rs.ComputedAt}, true, nil
}

// Save replaces the snapshot stored under snap.Key.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := encodeRedisSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+snap.Key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot %s to redis: %w", snap.Key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func encodeRedisSnapshot(snap Snapshot) (string, error) {
	data, err := json.Marshal(redisSnapshot{ComputedAt: snap.ComputedAt.UTC(), Payload: snap.Payload})
	if err != nil {
		return "", fmt.Errorf("encoding snapshot %s: %w", snap.Key, err)
	}
	return string(data), nil
}
