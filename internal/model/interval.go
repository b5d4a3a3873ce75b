package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrInvalidWeekday   = errors.New("invalid weekday")
)

// secondsPerDay bounds TimeOfDay values.
const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall-clock time with second precision, stored as seconds since midnight.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q, expected HH:MM or HH:MM:SS", ErrInvalidTimeOfDay, s)
	}

	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("%w: %q, expected HH:MM or HH:MM:SS", ErrInvalidTimeOfDay, s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > limits[i] {
			return 0, fmt.Errorf("%w: %q, expected HH:MM or HH:MM:SS", ErrInvalidTimeOfDay, s)
		}
		values[i] = v
	}

	return TimeOfDay(values[0]*3600 + values[1]*60 + values[2]), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals; it panics on bad input.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the wall-clock part of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < secondsPerDay
}

// String formats as "HH:MM:SS", the stored representation.
func (t TimeOfDay) String() string {
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Weekday is one of the seven full English day names, matched case-sensitively.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists valid values Monday first.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday rejects anything but an exact full English day name.
func ParseWeekday(s string) (Weekday, error) {
	for _, d := range Weekdays {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, s)
}

// WeekdayOf returns the day name of date in loc. A nil loc uses date's own location.
func WeekdayOf(date time.Time, loc *time.Location) Weekday {
	if loc != nil {
		date = date.In(loc)
	}
	return Weekday(date.Weekday().String())
}

func (w Weekday) Valid() bool {
	_, err := ParseWeekday(string(w))
	return err == nil
}

// FreeInterval is a contiguous block of a weekday during which a room has no class.
type FreeInterval struct {
	ID          int64     `json:"id"`
	Room        string    `json:"room"`
	Weekday     Weekday   `json:"weekday"`
	FreeStart   TimeOfDay `json:"free_start"`
	FreeEnd     TimeOfDay `json:"free_end"`
	LastUpdated time.Time `json:"last_updated"`
}

// Validate checks that the room is named, the weekday is known and FreeStart < FreeEnd.
func (f *FreeInterval) Validate() error {
	if f.Room == "" {
		return fmt.Errorf("interval %d: room is empty", f.ID)
	}
	if !f.Weekday.Valid() {
		return fmt.Errorf("interval %d: %w: %q", f.ID, ErrInvalidWeekday, f.Weekday)
	}
	if !f.FreeStart.Valid() || !f.FreeEnd.Valid() {
		return fmt.Errorf("interval %d: %w", f.ID, ErrInvalidTimeOfDay)
	}
	if f.FreeStart >= f.FreeEnd {
		return fmt.Errorf("interval %d: free_start %s must be before free_end %s", f.ID, f.FreeStart, f.FreeEnd)
	}
	return nil
}

// Contains reports whether at lies in [FreeStart, FreeEnd], both ends inclusive.
func (f *FreeInterval) Contains(at TimeOfDay) bool {
	return f.FreeStart <= at && at <= f.FreeEnd
}

// Duration returns the length of the interval.
func (f *FreeInterval) Duration() time.Duration {
	return time.Duration(f.FreeEnd-f.FreeStart) * time.Second
}

// RoomSlot is the reduced shape returned by the room-schedule lookup.
type RoomSlot struct {
	Room      string    `json:"room"`
	Weekday   Weekday   `json:"weekday"`
	FreeStart TimeOfDay `json:"free_start"`
	FreeEnd   TimeOfDay `json:"free_end"`
}

// Slot drops the id and timestamp.
func (f *FreeInterval) Slot() RoomSlot {
	return RoomSlot{Room: f.Room, Weekday: f.Weekday, FreeStart: f.FreeStart, FreeEnd: f.FreeEnd}
}
