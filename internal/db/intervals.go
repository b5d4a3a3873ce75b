package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomfinder/internal/events"
	"roomfinder/internal/model"
)

// ErrMalformedRecord marks a stored row that cannot be decoded into a FreeInterval.
var ErrMalformedRecord = errors.New("malformed availability record")

const selectIntervals = `SELECT id, room, weekday, free_start, free_end, last_updated FROM room_availability`

// IntervalsByRoom returns every interval of room on weekday, earliest first.
func (db *DB) IntervalsByRoom(ctx context.Context, room string, weekday model.Weekday) ([]model.FreeInterval, error) {
	return db.queryIntervals(ctx,
		selectIntervals+` WHERE room = ? AND weekday = ? ORDER BY free_start, free_end`,
		room, string(weekday),
	)
}

// IntervalsInBuilding returns the intervals on weekday of every room whose name
// contains building. instr is a case-sensitive literal match, so '%' and '_' in a
// building name carry no wildcard meaning. With at set, only intervals containing at
// (both ends inclusive) are returned.
func (db *DB) IntervalsInBuilding(ctx context.Context, building string, weekday model.Weekday, at *model.TimeOfDay) ([]model.FreeInterval, error) {
	if at == nil {
		return db.queryIntervals(ctx,
			selectIntervals+` WHERE instr(room, ?) > 0 AND weekday = ? ORDER BY room, free_start`,
			building, string(weekday),
		)
	}
	t := at.String()
	return db.queryIntervals(ctx,
		selectIntervals+` WHERE instr(room, ?) > 0 AND weekday = ? AND free_start <= ? AND free_end >= ?
		ORDER BY room, free_start`,
		building, string(weekday), t, t,
	)
}

// Rooms returns the distinct room names in ascending order.
func (db *DB) Rooms(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT room FROM room_availability ORDER BY room`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// ReplaceIntervals swaps the whole table for intervals in one transaction and stamps
// every row with the same last_updated time.
func (db *DB) ReplaceIntervals(ctx context.Context, intervals []model.FreeInterval) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM room_availability`); err != nil {
		return 0, fmt.Errorf("clear availability: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO room_availability (room, weekday, free_start, free_end, last_updated)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range intervals {
		iv := &intervals[i]
		if err := iv.Validate(); err != nil {
			return 0, err
		}
		updated := iv.LastUpdated
		if updated.IsZero() {
			updated = now
		}
		if _, err := stmt.ExecContext(ctx, iv.Room, string(iv.Weekday), iv.FreeStart.String(), iv.FreeEnd.String(), updated); err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", iv.Room, iv.Weekday, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	err = db.bus.Publish(events.Event{
		Type:    events.TopicIntervalsReplaced,
		Payload: events.IntervalsReplaced{Count: len(intervals), At: now},
	})
	if err != nil {
		db.logger.Warn().Err(err).Msg("intervals.replaced subscribers failed")
	}
	return len(intervals), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterval(row rowScanner) (*model.FreeInterval, error) {
	var (
		iv         model.FreeInterval
		day        string
		start, end string
	)
	if err := row.Scan(&iv.ID, &iv.Room, &day, &start, &end, &iv.LastUpdated); err != nil {
		return nil, err
	}

	iv.Weekday = model.Weekday(day)
	var err error
	if iv.FreeStart, err = model.ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("%w: id %d free_start: %v", ErrMalformedRecord, iv.ID, err)
	}
	if iv.FreeEnd, err = model.ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("%w: id %d free_end: %v", ErrMalformedRecord, iv.ID, err)
	}
	return &iv, nil
}

func (db *DB) queryIntervals(ctx context.Context, query string, args ...any) ([]model.FreeInterval, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	defer rows.Close()

	intervals := make([]model.FreeInterval, 0)
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, *iv)
	}
	return intervals, rows.Err()
}
