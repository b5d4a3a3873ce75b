// Package cache puts a Redis read-through layer in front of the interval store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomfinder/internal/availability"
	"roomfinder/internal/events"
	"roomfinder/internal/metrics"
	"roomfinder/internal/model"
)

const keyPrefix = "roomfinder:"

// Store caches the read side of an availability.Store. Redis failures degrade to
// direct store reads.
//
// Every Invalidate bumps gen. A read only fills the cache when no invalidation
// happened between its store fetch and its write.
type Store struct {
	next   availability.Store
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
	gen    atomic.Uint64
}

var _ availability.Store = (*Store)(nil)

func New(next availability.Store, rdb *redis.Client, ttl time.Duration, logger *zerolog.Logger) *Store {
	return &Store{next: next, redis: rdb, ttl: ttl, logger: logger}
}

// InvalidateOn drops every cached entry whenever the interval table is replaced.
func (s *Store) InvalidateOn(bus *events.Bus) {
	bus.Subscribe(events.TopicIntervalsReplaced, func(events.Event) error {
		return s.Invalidate(context.Background())
	})
}

func (s *Store) IntervalsByRoom(ctx context.Context, room string, weekday model.Weekday) ([]model.FreeInterval, error) {
	key := fmt.Sprintf("%sroom:%s:%s", keyPrefix, weekday, room)
	var out []model.FreeInterval
	if s.readCache(ctx, key, &out) {
		return out, nil
	}

	gen := s.gen.Load()
	out, err := s.next.IntervalsByRoom(ctx, room, weekday)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, gen, key, out)
	return out, nil
}

func (s *Store) IntervalsInBuilding(ctx context.Context, building string, weekday model.Weekday, at *model.TimeOfDay) ([]model.FreeInterval, error) {
	instant := "all"
	if at != nil {
		instant = at.String()
	}
	key := fmt.Sprintf("%sbuilding:%s:%s:%s", keyPrefix, weekday, instant, building)
	var out []model.FreeInterval
	if s.readCache(ctx, key, &out) {
		return out, nil
	}

	gen := s.gen.Load()
	out, err := s.next.IntervalsInBuilding(ctx, building, weekday, at)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, gen, key, out)
	return out, nil
}

func (s *Store) Rooms(ctx context.Context) ([]string, error) {
	key := keyPrefix + "rooms"
	var out []string
	if s.readCache(ctx, key, &out) {
		return out, nil
	}

	gen := s.gen.Load()
	out, err := s.next.Rooms(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, gen, key, out)
	return out, nil
}

// Invalidate deletes every key written by this cache.
func (s *Store) Invalidate(ctx context.Context) error {
	s.gen.Add(1)
	iter := s.redis.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	s.logger.Debug().Int("keys", len(keys)).Msg("cache invalidated")
	return nil
}

func (s *Store) readCache(ctx context.Context, key string, out any) bool {
	val, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncCache("miss")
		return false
	}
	if err != nil {
		metrics.IncCache("error")
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		metrics.IncCache("error")
		return false
	}
	metrics.IncCache("hit")
	return true
}

// writeCache stores val unless the cache was invalidated after gen was read.
func (s *Store) writeCache(ctx context.Context, gen uint64, key string, val any) {
	if s.gen.Load() != gen {
		s.logger.Debug().Str("key", key).Msg("skipping cache fill from before invalidation")
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return
	}
	// An invalidation that started while Set was in flight may have scanned too early.
	if s.gen.Load() != gen {
		_ = s.redis.Del(ctx, key).Err()
	}
}
