package reconcile

import (
	"time"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// Day is a single clock reading resolved into the reporting calendar.
// All history entries produced by one operation share the same Day so an
// operation straddling midnight cannot mix two calendar days.
type Day struct {
	// Now is the reading normalized to UTC, used for stored timestamps
	Now       time.Time
	Today     string
	Yesterday string
}

// DayAt resolves now into calendar days of loc
func DayAt(now time.Time, loc *time.Location) Day {
	local := now.In(loc)
	y, m, d := local.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	return Day{
		Now:       now.UTC(),
		Today:     midnight.Format(entities.DateLayout),
		Yesterday: midnight.AddDate(0, 0, -1).Format(entities.DateLayout),
	}
}

// Clock reads the current time and resolves it into reporting days
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a clock for the reporting timezone loc
func NewClock(loc *time.Location) *Clock {
	return &Clock{loc: loc, now: time.Now}
}

// NewFixedClock creates a clock frozen at t, for tests and replays
func NewFixedClock(loc *time.Location, t time.Time) *Clock {
	return &Clock{loc: loc, now: func() time.Time { return t }}
}

// Read takes one clock reading
func (c *Clock) Read() Day {
	return DayAt(c.now(), c.loc)
}
