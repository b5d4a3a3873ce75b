package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"roomfinder/internal/events"
)

// DB wraps sql.DB holding the room_availability table.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
	bus    *events.Bus
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL lets the HTTP readers proceed while the seed loader replaces the table.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: sqlDB, logger: logger}, nil
}

// SetEventBus makes ReplaceIntervals publish events.TopicIntervalsReplaced on bus.
func (db *DB) SetEventBus(bus *events.Bus) {
	db.bus = bus
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Free intervals per room and weekday; bulk-replaced by ingestion.
		`CREATE TABLE IF NOT EXISTS room_availability (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room TEXT NOT NULL,
			weekday TEXT NOT NULL,
			free_start TEXT NOT NULL,
			free_end TEXT NOT NULL,
			last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_availability_room_day ON room_availability(room, weekday, free_start)`,
		`CREATE INDEX IF NOT EXISTS idx_availability_day_start ON room_availability(weekday, free_start)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
