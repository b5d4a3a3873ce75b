package config

import (
	"fmt"
	"os"
	"strings"

	"roomfinder/internal/model"

	"gopkg.in/yaml.v3"
)

// RoomDayConfig lists the free ranges of one room on one weekday.
type RoomDayConfig struct {
	Room    string   `yaml:"room"`
	Weekday string   `yaml:"weekday"`
	Free    []string `yaml:"free"` // "09:00-09:45" or "09:00:00-09:45:00"
}

// IntervalsConfig is the root of the materialized availability file.
type IntervalsConfig struct {
	Rooms []RoomDayConfig `yaml:"rooms"`
}

// LoadIntervalsConfig loads and validates the availability seed file.
func LoadIntervalsConfig(path string) (*IntervalsConfig, error) {
	if path == "" {
		path = "configs/intervals.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read intervals config: %w", err)
	}

	var cfg IntervalsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse intervals config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate intervals config: %w", err)
	}

	return &cfg, nil
}

// Validate checks every entry can be turned into a valid FreeInterval.
func (c *IntervalsConfig) Validate() error {
	_, err := c.Intervals()
	return err
}

// Intervals expands the file into FreeInterval records. LastUpdated is left zero for
// the store to stamp.
func (c *IntervalsConfig) Intervals() ([]model.FreeInterval, error) {
	var out []model.FreeInterval
	for i, rd := range c.Rooms {
		if strings.TrimSpace(rd.Room) == "" {
			return nil, fmt.Errorf("rooms[%d]: room is required", i)
		}
		day, err := model.ParseWeekday(rd.Weekday)
		if err != nil {
			return nil, fmt.Errorf("rooms[%d]: %w", i, err)
		}
		for j, r := range rd.Free {
			start, end, err := parseRange(r)
			if err != nil {
				return nil, fmt.Errorf("rooms[%d].free[%d]: %w", i, j, err)
			}
			fi := model.FreeInterval{Room: rd.Room, Weekday: day, FreeStart: start, FreeEnd: end}
			if err := fi.Validate(); err != nil {
				return nil, fmt.Errorf("rooms[%d].free[%d]: %w", i, j, err)
			}
			out = append(out, fi)
		}
	}
	return out, nil
}

func parseRange(s string) (model.TimeOfDay, model.TimeOfDay, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid range %q, expected HH:MM-HH:MM", s)
	}
	start, err := model.ParseTimeOfDay(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := model.ParseTimeOfDay(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// String returns a summary of the configuration.
func (c *IntervalsConfig) String() string {
	n := 0
	for _, rd := range c.Rooms {
		n += len(rd.Free)
	}
	return fmt.Sprintf("IntervalsConfig: %d room-days, %d intervals", len(c.Rooms), n)
}
