package telemetry

import (
	"testing"
	"time"

	"github.com/banshee-data/airsense.report/internal/timeutil"
)

func TestResolveTimestampDeviceFields(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name   string
		fields map[string]string
		want   int64
	}{
		{
			"date and time",
			map[string]string{"DATE": "2025-09-22", "TIME": "14:07:03"},
			time.Date(2025, 9, 22, 14, 7, 3, 0, time.Local).UnixMilli(),
		},
		{
			"lowercase field names",
			map[string]string{"date": "2025-09-22", "time": "14:07:03"},
			time.Date(2025, 9, 22, 14, 7, 3, 0, time.Local).UnixMilli(),
		},
		{
			"fractional seconds",
			map[string]string{"Date": "2025-09-22", "Time": "14:07:03.123"},
			time.Date(2025, 9, 22, 14, 7, 3, 123e6, time.Local).UnixMilli(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveTimestamp(tt.fields, clock); got != tt.want {
				t.Errorf("resolveTimestamp() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveTimestampFallback(t *testing.T) {
	now := time.Date(2025, 9, 22, 14, 7, 3, 0, time.UTC)
	clock := timeutil.NewMockClock(now)

	tests := []struct {
		name   string
		fields map[string]string
	}{
		{"no fields", map[string]string{"PM2.5(UGM3)": "12.3"}},
		{"date only", map[string]string{"DATE": "2025-09-22"}},
		{"empty time", map[string]string{"DATE": "2025-09-22", "TIME": " "}},
		{"unparseable", map[string]string{"DATE": "yesterday", "TIME": "noon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveTimestamp(tt.fields, clock); got != now.UnixMilli() {
				t.Errorf("resolveTimestamp() = %d, want arrival time %d", got, now.UnixMilli())
			}
		})
	}
}
