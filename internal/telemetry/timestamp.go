package telemetry

import (
	"strings"
	"time"

	"github.com/banshee-data/airsense.report/internal/timeutil"
)

// deviceTimeLayout parses the combined DATE+"T"+TIME string in local time.
// time.Parse accepts trailing fractional seconds even though the layout does
// not name them, so "14:07:03.123" parses under this layout too.
const deviceTimeLayout = "2006-01-02T15:04:05"

// resolveTimestamp derives the event instant for one decoded row as epoch
// milliseconds. If the row carries non-empty Date and Time fields that parse
// as a local date-time, that instant wins; otherwise the wall clock at
// processing time is used. The fallback cannot fail, so the result is always
// a valid timestamp.
func resolveTimestamp(fields map[string]string, clock timeutil.Clock) int64 {
	var date, tod string
	for name, value := range fields {
		switch {
		case strings.EqualFold(name, "date"):
			date = strings.TrimSpace(value)
		case strings.EqualFold(name, "time"):
			tod = strings.TrimSpace(value)
		}
	}

	if date != "" && tod != "" {
		if t, err := time.ParseInLocation(deviceTimeLayout, date+"T"+tod, time.Local); err == nil {
			return t.UnixMilli()
		}
	}
	return clock.Now().UnixMilli()
}
