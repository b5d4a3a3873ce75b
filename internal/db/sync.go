package db

import (
	"context"
	"fmt"

	"roomfinder/internal/config"
)

// SyncIntervalsFromConfig replaces the stored availability with the contents of the
// intervals file. Rooms absent from the file disappear from the store.
func (db *DB) SyncIntervalsFromConfig(ctx context.Context, cfg *config.IntervalsConfig) (int, error) {
	if cfg == nil {
		return 0, fmt.Errorf("intervals config is nil")
	}

	intervals, err := cfg.Intervals()
	if err != nil {
		return 0, fmt.Errorf("expand intervals: %w", err)
	}

	n, err := db.ReplaceIntervals(ctx, intervals)
	if err != nil {
		return 0, fmt.Errorf("replace intervals: %w", err)
	}

	db.logger.Info().Int("intervals", n).Int("room_days", len(cfg.Rooms)).Msg("availability replaced")
	return n, nil
}
