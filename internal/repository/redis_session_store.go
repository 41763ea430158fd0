package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/config"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
)

const scanBatchSize = 100

// RedisSessionStore implements SessionStore over a Redis server.
type RedisSessionStore struct {
	client redis.UniversalClient
}

// NewRedisClient creates a Redis client from the application settings and verifies it is reachable.
func NewRedisClient(ctx context.Context, cfg *config.RedisSettings) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  constants.RedisDialTimeout,
		ReadTimeout:  constants.RedisReadTimeout,
		WriteTimeout: constants.RedisWriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, constants.RedisDialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	log.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("Connected to redis")
	return client, nil
}

// NewRedisSessionStore creates a session store over an existing client.
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Client exposes the underlying client, shared with the realtime broker.
func (s *RedisSessionStore) Client() redis.UniversalClient {
	return s.client
}

// Exists reports whether a key exists.
func (s *RedisSessionStore) Exists(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	n, err := s.client.Exists(ctx, key).Result()
	utils.LogStoreOp("EXISTS", key, time.Since(start), err)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HSet writes fields into the hash at key.
func (s *RedisSessionStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	start := time.Now()
	err := s.client.HSet(ctx, key, values).Err()
	utils.LogStoreOp("HSET", key, time.Since(start), err)
	return err
}

// HGetAll returns the hash at key, or an empty map if it does not exist.
func (s *RedisSessionStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	start := time.Now()
	fields, err := s.client.HGetAll(ctx, key).Result()
	utils.LogStoreOp("HGETALL", key, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return fields, nil
}

// SAdd adds members to the set at key.
func (s *RedisSessionStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}

	start := time.Now()
	err := s.client.SAdd(ctx, key, toInterfaces(members)...).Err()
	utils.LogStoreOp("SADD", key, time.Since(start), err)
	return err
}

// SMembers returns the members of the set at key in sorted order.
func (s *RedisSessionStore) SMembers(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	members, err := s.client.SMembers(ctx, key).Result()
	utils.LogStoreOp("SMEMBERS", key, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

// SIsMember reports whether member is in the set at key.
func (s *RedisSessionStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	start := time.Now()
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	utils.LogStoreOp("SISMEMBER", key, time.Since(start), err)
	return ok, err
}

// RPush appends values to the list at key.
func (s *RedisSessionStore) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}

	start := time.Now()
	err := s.client.RPush(ctx, key, toInterfaces(values)...).Err()
	utils.LogStoreOp("RPUSH", key, time.Since(start), err)
	return err
}

// LRange returns the whole list at key in append order.
func (s *RedisSessionStore) LRange(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	utils.LogStoreOp("LRANGE", key, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Expire sets a time to live on key.
func (s *RedisSessionStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	err := s.client.Expire(ctx, key, ttl).Err()
	utils.LogStoreOp("EXPIRE", key, time.Since(start), err)
	return err
}

// TTL returns the remaining time to live of key.
func (s *RedisSessionStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	start := time.Now()
	ttl, err := s.client.TTL(ctx, key).Result()
	utils.LogStoreOp("TTL", key, time.Since(start), err)
	if err != nil {
		return 0, err
	}

	// go-redis passes the -1 and -2 replies through unscaled, which is
	// exactly TTLPersistent and TTLMissing
	return ttl, nil
}

// Delete removes keys.
func (s *RedisSessionStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	start := time.Now()
	err := s.client.Del(ctx, keys...).Err()
	utils.LogStoreOp("DEL", keys[0], time.Since(start), err)
	return err
}

// ScanPrefix returns every key starting with prefix, walking the keyspace with SCAN.
func (s *RedisSessionStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	start := time.Now()

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanBatchSize).Result()
		if err != nil {
			utils.LogStoreOp("SCAN", prefix, time.Since(start), err)
			return nil, err
		}
		for _, key := range keys {
			seen[key] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	utils.LogStoreOp("SCAN", prefix, time.Since(start), nil)

	// SCAN may return a key more than once
	result := make([]string, 0, len(seen))
	for key := range seen {
		result = append(result, key)
	}
	sort.Strings(result)
	return result, nil
}

// Ping checks that the store is reachable.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("Redis ping failed")
	}
	return err
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
