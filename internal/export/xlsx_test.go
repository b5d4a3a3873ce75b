package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"roomfinder/internal/availability"
	"roomfinder/internal/client"
	"roomfinder/internal/model"
)

func readSheet(t *testing.T, data []byte) (string, [][]string) {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Len(t, sheets, 1)
	rows, err := f.GetRows(sheets[0])
	require.NoError(t, err)
	return sheets[0], rows
}

func TestFreeRooms(t *testing.T) {
	at := model.MustTimeOfDay("09:15")
	v := client.View{
		Query: &availability.BuildingQuery{Building: "Davis", Weekday: model.Monday, At: &at},
		Rows: []client.Row{{
			Interval:    model.FreeInterval{Room: "Davis Library-Rm 100", Weekday: model.Monday},
			Start:       "9:00 AM",
			End:         "9:45 AM",
			LastUpdated: "Oct 1, 2026 12:30 PM",
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, FreeRooms(&buf, v))

	name, rows := readSheet(t, buf.Bytes())
	assert.Equal(t, "Davis Monday", name)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Room", "Weekday", "Free from", "Free until", "Last updated"}, rows[0])
	assert.Equal(t, []string{"Davis Library-Rm 100", "Monday", "9:00 AM", "9:45 AM", "Oct 1, 2026 12:30 PM"}, rows[1])
}

func TestRoomSchedule(t *testing.T) {
	slots := []model.RoomSlot{
		{Room: "Davis Library-Rm 100", Weekday: model.Monday, FreeStart: model.MustTimeOfDay("09:00"), FreeEnd: model.MustTimeOfDay("09:45")},
		{Room: "Davis Library-Rm 100", Weekday: model.Monday, FreeStart: model.MustTimeOfDay("13:05"), FreeEnd: model.MustTimeOfDay("14:00")},
	}

	var buf bytes.Buffer
	require.NoError(t, RoomSchedule(&buf, "Davis Library-Rm 100", model.Monday, slots))

	_, rows := readSheet(t, buf.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Davis Library-Rm 100", "Monday", "1:05 PM", "2:00 PM"}, rows[2])
}

func TestWorkbook_SheetNames(t *testing.T) {
	wb := NewWorkbook()
	defer wb.Close()

	assert.Error(t, wb.WriteRow([]any{"x"}))
	require.NoError(t, wb.AddSheet("Hall A/B: [annex] with a very long trailing name"))
	require.NoError(t, wb.AddSheet("Second"))

	var buf bytes.Buffer
	require.NoError(t, wb.Save(&buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	names := f.GetSheetList()
	require.Len(t, names, 2)
	assert.LessOrEqual(t, len([]rune(names[0])), 31)
	assert.NotContains(t, names[0], "/")
	assert.Equal(t, "Second", names[1])
}
