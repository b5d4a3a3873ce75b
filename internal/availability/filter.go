package availability

import (
	"fmt"
	"net/url"
	"strings"

	"roomfinder/internal/model"
)

// Query parameter names accepted by ParseRoomQuery and ParseBuildingQuery.
const (
	ParamRoom      = "room"
	ParamBuilding  = "building"
	ParamWeekday   = "weekday"
	ParamCheckTime = "checkTime"
)

// RoomQuery selects one room's full free schedule for a weekday.
type RoomQuery struct {
	Room    string
	Weekday model.Weekday
}

// BuildingQuery selects intervals of rooms whose name contains Building. A nil At
// returns the whole day.
type BuildingQuery struct {
	Building string
	Weekday  model.Weekday
	At       *model.TimeOfDay
}

func (q RoomQuery) String() string {
	return fmt.Sprintf("room=%q weekday=%s", q.Room, q.Weekday)
}

func (q BuildingQuery) String() string {
	if q.At == nil {
		return fmt.Sprintf("building=%q weekday=%s", q.Building, q.Weekday)
	}
	return fmt.Sprintf("building=%q weekday=%s at=%s", q.Building, q.Weekday, q.At)
}

// NewRoomQuery validates room and weekday.
func NewRoomQuery(room, weekday string) (RoomQuery, error) {
	if strings.TrimSpace(room) == "" {
		return RoomQuery{}, missing(ParamRoom)
	}
	day, err := parseWeekday(weekday)
	if err != nil {
		return RoomQuery{}, err
	}
	return RoomQuery{Room: room, Weekday: day}, nil
}

// NewBuildingQuery validates building, weekday and the optional checkTime. An empty
// checkTime leaves At nil.
func NewBuildingQuery(building, weekday, checkTime string) (BuildingQuery, error) {
	if strings.TrimSpace(building) == "" {
		return BuildingQuery{}, missing(ParamBuilding)
	}
	day, err := parseWeekday(weekday)
	if err != nil {
		return BuildingQuery{}, err
	}

	q := BuildingQuery{Building: building, Weekday: day}
	if checkTime != "" {
		at, err := model.ParseTimeOfDay(checkTime)
		if err != nil {
			return BuildingQuery{}, invalid(ParamCheckTime, err)
		}
		q.At = &at
	}
	return q, nil
}

// ParseRoomQuery builds a RoomQuery from URL query parameters.
func ParseRoomQuery(v url.Values) (RoomQuery, error) {
	return NewRoomQuery(v.Get(ParamRoom), v.Get(ParamWeekday))
}

// ParseBuildingQuery builds a BuildingQuery from URL query parameters.
func ParseBuildingQuery(v url.Values) (BuildingQuery, error) {
	return NewBuildingQuery(v.Get(ParamBuilding), v.Get(ParamWeekday), v.Get(ParamCheckTime))
}

// Values renders q back into query parameters.
func (q RoomQuery) Values() url.Values {
	return url.Values{ParamRoom: {q.Room}, ParamWeekday: {string(q.Weekday)}}
}

// Values renders q back into query parameters.
func (q BuildingQuery) Values() url.Values {
	v := url.Values{ParamBuilding: {q.Building}, ParamWeekday: {string(q.Weekday)}}
	if q.At != nil {
		v.Set(ParamCheckTime, q.At.String())
	}
	return v
}

func parseWeekday(s string) (model.Weekday, error) {
	if s == "" {
		return "", missing(ParamWeekday)
	}
	day, err := model.ParseWeekday(s)
	if err != nil {
		return "", invalid(ParamWeekday, err)
	}
	return day, nil
}

// matches re-checks the building predicate against a stored interval.
func (q BuildingQuery) matches(iv *model.FreeInterval) bool {
	if iv.Weekday != q.Weekday || !strings.Contains(iv.Room, q.Building) {
		return false
	}
	return q.At == nil || iv.Contains(*q.At)
}
