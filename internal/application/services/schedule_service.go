package services

import (
	"fmt"
	"time"

	"github.com/bimakw/volume-tracker/internal/scheduler"
)

// ScheduleService describes when the daily update runs next
type ScheduleService struct {
	spec string
	loc  *time.Location
	now  func() time.Time
}

// NewScheduleService creates a schedule service for a five-field cron spec
// evaluated in loc
func NewScheduleService(spec string, loc *time.Location) *ScheduleService {
	return &ScheduleService{
		spec: spec,
		loc:  loc,
		now:  time.Now,
	}
}

// ScheduleInfo is the API representation of the daily schedule
type ScheduleInfo struct {
	CurrentTime      time.Time `json:"currentTime"`
	NextScheduledRun time.Time `json:"nextScheduledRun"`
	Timezone         string    `json:"timezone"`
	LocalTime        string    `json:"localTime"`
	TestMode         bool      `json:"testMode"`
}

// Info reports the current time and the next scheduled run
func (s *ScheduleService) Info() (*ScheduleInfo, error) {
	now := s.now()

	next, err := scheduler.NextAfter(s.spec, s.loc, now)
	if err != nil {
		return nil, err
	}

	return &ScheduleInfo{
		CurrentTime:      now.UTC(),
		NextScheduledRun: next.UTC(),
		Timezone:         offsetLabel(next),
		LocalTime:        next.Format("3:04 PM"),
		TestMode:         false,
	}, nil
}

// offsetLabel renders a zone offset as UTC+7, UTC-3:30 or UTC
func offsetLabel(t time.Time) string {
	_, offset := t.Zone()
	if offset == 0 {
		return "UTC"
	}

	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hours, minutes := offset/3600, (offset%3600)/60
	if minutes == 0 {
		return fmt.Sprintf("UTC%s%d", sign, hours)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, hours, minutes)
}
