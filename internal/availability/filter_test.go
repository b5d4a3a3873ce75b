package availability

import (
	"errors"
	"net/url"
	"testing"

	"roomfinder/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomQuery(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		kind    error
		param   string
		message string
	}{
		{"missing room", url.Values{"weekday": {"Monday"}}, ErrMissingParameter, "room", "missing required query param: room"},
		{"blank room", url.Values{"room": {"  "}, "weekday": {"Monday"}}, ErrMissingParameter, "room", "missing required query param: room"},
		{"missing weekday", url.Values{"room": {"A-Rm 1"}}, ErrMissingParameter, "weekday", "missing required query param: weekday"},
		{"lowercase weekday", url.Values{"room": {"A-Rm 1"}, "weekday": {"monday"}}, ErrInvalidParameter, "weekday", ""},
		{"abbreviated weekday", url.Values{"room": {"A-Rm 1"}, "weekday": {"Mon"}}, ErrInvalidParameter, "weekday", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoomQuery(tt.values)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)

			var pe *ParamError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.param, pe.Param)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}

	q, err := ParseRoomQuery(url.Values{"room": {"Davis Library-Rm 100"}, "weekday": {"Monday"}})
	require.NoError(t, err)
	assert.Equal(t, RoomQuery{Room: "Davis Library-Rm 100", Weekday: model.Monday}, q)
}

func TestParseBuildingQuery(t *testing.T) {
	_, err := ParseBuildingQuery(url.Values{"weekday": {"Monday"}, "checkTime": {"09:15"}})
	assert.ErrorIs(t, err, ErrMissingParameter)
	assert.EqualError(t, err, "missing required query param: building")

	_, err = ParseBuildingQuery(url.Values{"building": {"Davis"}, "checkTime": {"09:15"}})
	assert.EqualError(t, err, "missing required query param: weekday")

	for _, bad := range []string{"9:15", "24:00", "09:60", "noon", "09:15:00:00"} {
		_, err = ParseBuildingQuery(url.Values{"building": {"Davis"}, "weekday": {"Monday"}, "checkTime": {bad}})
		assert.ErrorIs(t, err, ErrInvalidParameter, bad)
	}

	q, err := ParseBuildingQuery(url.Values{"building": {"Davis"}, "weekday": {"Monday"}, "checkTime": {"09:15"}})
	require.NoError(t, err)
	require.NotNil(t, q.At)
	assert.Equal(t, "09:15:00", q.At.String())
	assert.Equal(t, "09:15:00", q.Values().Get("checkTime"))

	q, err = ParseBuildingQuery(url.Values{"building": {"Davis"}, "weekday": {"Monday"}})
	require.NoError(t, err)
	assert.Nil(t, q.At)
	assert.False(t, q.Values().Has("checkTime"))
}

func TestBuildingQuery_Matches(t *testing.T) {
	at := model.MustTimeOfDay("09:45")
	q := BuildingQuery{Building: "Davis", Weekday: model.Monday, At: &at}

	iv := interval(1, "Davis Library-Rm 100", model.Monday, "09:00", "09:45")
	assert.True(t, q.matches(&iv))

	iv.Weekday = model.Tuesday
	assert.False(t, q.matches(&iv))

	iv = interval(2, "davis library-Rm 100", model.Monday, "09:00", "09:45")
	assert.False(t, q.matches(&iv))
}
