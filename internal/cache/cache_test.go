package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomfinder/internal/events"
	"roomfinder/internal/model"
)

type countingStore struct {
	rows  []model.FreeInterval
	calls int
}

func (s *countingStore) IntervalsByRoom(_ context.Context, room string, day model.Weekday) ([]model.FreeInterval, error) {
	s.calls++
	out := make([]model.FreeInterval, 0)
	for _, r := range s.rows {
		if r.Room == room && r.Weekday == day {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *countingStore) IntervalsInBuilding(_ context.Context, _ string, day model.Weekday, at *model.TimeOfDay) ([]model.FreeInterval, error) {
	s.calls++
	out := make([]model.FreeInterval, 0)
	for _, r := range s.rows {
		if r.Weekday == day && (at == nil || r.Contains(*at)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *countingStore) Rooms(context.Context) ([]string, error) {
	s.calls++
	return []string{"Davis Library-Rm 100"}, nil
}

func setup(t *testing.T) (*Store, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	next := &countingStore{rows: []model.FreeInterval{{
		ID:          1,
		Room:        "Davis Library-Rm 100",
		Weekday:     model.Monday,
		FreeStart:   model.MustTimeOfDay("09:00"),
		FreeEnd:     model.MustTimeOfDay("09:45"),
		LastUpdated: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}}}
	logger := zerolog.Nop()
	return New(next, rdb, time.Minute, &logger), next, mr
}

func TestStore_ReadThrough(t *testing.T) {
	s, next, mr := setup(t)
	ctx := context.Background()

	first, err := s.IntervalsByRoom(ctx, "Davis Library-Rm 100", model.Monday)
	require.NoError(t, err)
	second, err := s.IntervalsByRoom(ctx, "Davis Library-Rm 100", model.Monday)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].FreeStart, second[0].FreeStart)
	assert.True(t, first[0].LastUpdated.Equal(second[0].LastUpdated))

	mr.FastForward(2 * time.Minute)
	_, err = s.IntervalsByRoom(ctx, "Davis Library-Rm 100", model.Monday)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestStore_KeysIncludeInstant(t *testing.T) {
	s, next, _ := setup(t)
	ctx := context.Background()

	at := model.MustTimeOfDay("09:15")
	late := model.MustTimeOfDay("09:46")

	got, err := s.IntervalsInBuilding(ctx, "Davis", model.Monday, &at)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.IntervalsInBuilding(ctx, "Davis", model.Monday, &late)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = s.IntervalsInBuilding(ctx, "Davis", model.Monday, &late)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 2, next.calls)
}

func TestStore_InvalidateOnReplace(t *testing.T) {
	s, next, mr := setup(t)
	ctx := context.Background()
	bus := events.NewBus()
	s.InvalidateOn(bus)

	_, err := s.Rooms(ctx)
	require.NoError(t, err)
	_, err = s.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	require.NoError(t, mr.Set("unrelated", "x"))

	require.NoError(t, bus.Publish(events.Event{Type: events.TopicIntervalsReplaced}))

	_, err = s.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
	assert.True(t, mr.Exists("unrelated"))
}

func TestStore_RedisDownFallsThrough(t *testing.T) {
	s, next, mr := setup(t)
	mr.Close()

	rooms, err := s.Rooms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Davis Library-Rm 100"}, rooms)
	assert.Equal(t, 1, next.calls)
}

// gatedStore blocks Rooms until release is closed and returns whatever rooms holds then.
type gatedStore struct {
	countingStore
	mu      sync.Mutex
	rooms   []string
	started chan struct{}
	release chan struct{}
}

func (s *gatedStore) Rooms(context.Context) ([]string, error) {
	s.mu.Lock()
	s.calls++
	gated := s.calls == 1
	s.mu.Unlock()
	if gated {
		close(s.started)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.rooms...), nil
}

func (s *gatedStore) setRooms(rooms ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = rooms
}

func TestStore_ReadInFlightDuringReplaceNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := zerolog.Nop()

	next := &gatedStore{
		rooms:   []string{"Old Hall-Rm 1"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := New(next, rdb, time.Minute, &logger)
	bus := events.NewBus()
	s.InvalidateOn(bus)
	ctx := context.Background()

	done := make(chan []string, 1)
	go func() {
		rooms, err := s.Rooms(ctx)
		assert.NoError(t, err)
		done <- rooms
	}()

	<-next.started
	next.setRooms("New Hall-Rm 1")
	require.NoError(t, bus.Publish(events.Event{Type: events.TopicIntervalsReplaced}))
	close(next.release)

	assert.Equal(t, []string{"Old Hall-Rm 1"}, <-done)
	assert.False(t, mr.Exists(keyPrefix+"rooms"))

	rooms, err := s.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"New Hall-Rm 1"}, rooms)

	rooms, err = s.Rooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"New Hall-Rm 1"}, rooms)
	next.mu.Lock()
	assert.Equal(t, 2, next.calls)
	next.mu.Unlock()
}
