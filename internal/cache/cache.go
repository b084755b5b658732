package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nickbutler25/FPLOptimizer/pkg/logger"
)

// Store is a TTL key/value cache over redis. A nil client degrades to
// pass-through: every read misses and writes are dropped, so the service
// keeps working when redis is down or not configured.
type Store struct {
	client *redis.Client
	log    *logger.Logger
}

// New creates a cache store. client may be nil.
func New(client *redis.Client, log *logger.Logger) *Store {
	return &Store{
		client: client,
		log:    log.With("component", "cache"),
	}
}

// GetJSON loads key into dest. Returns false on miss or any error; cache
// failures are never fatal to the read path.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if s == nil || s.client == nil {
		return false
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("cache read failed", "key", key, "error", err.Error())
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		s.log.Warn("cache entry corrupt", "key", key, "error", err.Error())
		return false
	}
	return true
}

// SetJSON stores value under key with a TTL. The write happens on a
// background goroutine so it never blocks the response path.
func (s *Store) SetJSON(key string, value interface{}, ttl time.Duration) {
	if s == nil || s.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache marshal failed", "key", key, "error", err.Error())
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
			s.log.Warn("cache write failed", "key", key, "error", err.Error())
		}
	}()
}

// Delete removes a key. Best-effort.
func (s *Store) Delete(ctx context.Context, key string) {
	if s == nil || s.client == nil {
		return
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.log.Warn("cache delete failed", "key", key, "error", err.Error())
	}
}
