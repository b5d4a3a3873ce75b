package config

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// WatchIntervals loads the availability file once, hands it to onUpdate, and then polls
// its modification time, re-loading and re-delivering on every change until ctx ends.
// A file that fails validation is logged and skipped; the previous data stays live.
func WatchIntervals(ctx context.Context, path string, interval time.Duration, logger *zerolog.Logger, onUpdate func(*IntervalsConfig)) error {
	if path == "" {
		path = "configs/intervals.yaml"
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadIntervalsConfig(path)
	if err != nil {
		return err
	}
	onUpdate(cfg)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			info, err := os.Stat(path)
			if err != nil || !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			cfg, err := LoadIntervalsConfig(path)
			if err != nil {
				logger.Error().Err(err).Str("path", path).Msg("intervals file rejected, keeping previous data")
				continue
			}
			onUpdate(cfg)
		}
	}()

	return nil
}
