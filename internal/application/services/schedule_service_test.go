package services

import (
	"testing"
	"time"

	"github.com/bimakw/volume-tracker/internal/testutil"
)

func TestScheduleService_Info(t *testing.T) {
	service := NewScheduleService("1 7 * * *", reportingZone)
	service.now = func() time.Time { return testutil.FixtureTime }

	info, err := service.Info()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 6, 11, 0, 1, 0, 0, time.UTC)
	if !info.NextScheduledRun.Equal(want) {
		t.Errorf("expected next run %s, got %s", want, info.NextScheduledRun)
	}
	if info.NextScheduledRun.Location() != time.UTC {
		t.Error("expected next run in UTC")
	}
	if info.Timezone != "UTC+7" {
		t.Errorf("expected UTC+7, got %s", info.Timezone)
	}
	if info.LocalTime != "7:01 AM" {
		t.Errorf("expected 7:01 AM, got %s", info.LocalTime)
	}
	if !info.CurrentTime.Equal(testutil.FixtureTime) {
		t.Errorf("expected current time %s, got %s", testutil.FixtureTime, info.CurrentTime)
	}
}

func TestScheduleService_Info_SameDay(t *testing.T) {
	service := NewScheduleService("1 7 * * *", reportingZone)
	// 06:30 local
	service.now = func() time.Time { return time.Date(2024, 6, 9, 23, 30, 0, 0, time.UTC) }

	info, err := service.Info()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2024, 6, 10, 0, 1, 0, 0, time.UTC)
	if !info.NextScheduledRun.Equal(want) {
		t.Errorf("expected next run %s, got %s", want, info.NextScheduledRun)
	}
}

func TestScheduleService_Info_InvalidSpec(t *testing.T) {
	service := NewScheduleService("not a cron", reportingZone)

	if _, err := service.Info(); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestOffsetLabel(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{"utc", 0, "UTC"},
		{"positive", 7 * 3600, "UTC+7"},
		{"negative half hour", -(3*3600 + 30*60), "UTC-3:30"},
		{"positive quarter hour", 5*3600 + 45*60, "UTC+5:45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("X", tt.offset))
			if got := offsetLabel(ts); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
