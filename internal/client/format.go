package client

import (
	"time"

	"roomfinder/internal/model"
)

// LastUpdatedLayout renders the ingestion timestamp shown under results.
const LastUpdatedLayout = "Jan 2, 2006 3:04 PM"

// FormatClock renders a stored time of day as 12-hour clock text without
// seconds: "13:05:00" becomes "1:05 PM".
func FormatClock(t model.TimeOfDay) string {
	s := int(t)
	return time.Date(2000, 1, 1, s/3600, (s%3600)/60, s%60, 0, time.UTC).Format("3:04 PM")
}

// FormatLastUpdated renders t in loc; a nil loc keeps t's location.
func FormatLastUpdated(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(LastUpdatedLayout)
}
