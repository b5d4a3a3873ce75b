// Package availability answers free-classroom queries over stored weekly intervals.
//
// Building lookups match rooms by case-sensitive substring. Building names are not
// normalized upstream, so a building whose name is contained in another's
// ("Davis" in "Davis Library" and "Davis Hall") matches both.
package availability

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"roomfinder/internal/model"
)

// DefaultTimeout bounds a single store call when the engine is built without one.
const DefaultTimeout = 5 * time.Second

// Store is the read side of the interval table.
type Store interface {
	IntervalsByRoom(ctx context.Context, room string, weekday model.Weekday) ([]model.FreeInterval, error)
	IntervalsInBuilding(ctx context.Context, building string, weekday model.Weekday, at *model.TimeOfDay) ([]model.FreeInterval, error)
	Rooms(ctx context.Context) ([]string, error)
}

// Engine is stateless; one value serves concurrent callers.
type Engine struct {
	store   Store
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewEngine(store Store, timeout time.Duration, logger *zerolog.Logger) *Engine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Engine{store: store, timeout: timeout, logger: logger}
}

// RoomAvailability returns every free slot of q.Room on q.Weekday ordered by start,
// then end.
func (e *Engine) RoomAvailability(ctx context.Context, q RoomQuery) ([]model.RoomSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.store.IntervalsByRoom(ctx, q.Room, q.Weekday)
	if err != nil {
		return nil, storeError("room availability", err)
	}

	slots := make([]model.RoomSlot, 0, len(rows))
	for i := range rows {
		iv := &rows[i]
		if err := iv.Validate(); err != nil {
			return nil, storeError("room availability", err)
		}
		if iv.Room != q.Room || iv.Weekday != q.Weekday {
			continue
		}
		slots = append(slots, iv.Slot())
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].FreeStart != slots[j].FreeStart {
			return slots[i].FreeStart < slots[j].FreeStart
		}
		return slots[i].FreeEnd < slots[j].FreeEnd
	})

	e.logger.Debug().Stringer("query", q).Int("results", len(slots)).Msg("room availability")
	return slots, nil
}

// RoomsInBuilding returns the intervals matching q ordered by room, then start.
func (e *Engine) RoomsInBuilding(ctx context.Context, q BuildingQuery) ([]model.FreeInterval, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.store.IntervalsInBuilding(ctx, q.Building, q.Weekday, q.At)
	if err != nil {
		return nil, storeError("rooms in building", err)
	}

	out := make([]model.FreeInterval, 0, len(rows))
	for i := range rows {
		iv := &rows[i]
		if err := iv.Validate(); err != nil {
			return nil, storeError("rooms in building", err)
		}
		if q.matches(iv) {
			out = append(out, *iv)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Room != out[j].Room {
			return out[i].Room < out[j].Room
		}
		if out[i].FreeStart != out[j].FreeStart {
			return out[i].FreeStart < out[j].FreeStart
		}
		return out[i].FreeEnd < out[j].FreeEnd
	})

	e.logger.Debug().Stringer("query", q).Int("results", len(out)).Msg("rooms in building")
	return out, nil
}

// Buildings returns the building directory derived from every stored room.
func (e *Engine) Buildings(ctx context.Context) ([]model.BuildingDirectoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rooms, err := e.store.Rooms(ctx)
	if err != nil {
		return nil, storeError("buildings", err)
	}
	return model.BuildingDirectory(rooms), nil
}
