package engine

import (
	"fmt"
	"time"
)

// ClockTime is a wall-clock time of day in the exchange time zone.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("failed to parse clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns c on the calendar day of day, in loc.
func (c ClockTime) On(day time.Time, loc *time.Location) time.Time {
	d := day.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// SessionTimes are the four scheduled instants of one trading day.
type SessionTimes struct {
	Open      time.Time
	RangeEnd  time.Time
	Breakeven time.Time
	EOD       time.Time
}

// Schedule maps wall-clock time onto trading sessions.
type Schedule struct {
	Loc       *time.Location
	Open      ClockTime
	RangeEnd  ClockTime
	Breakeven ClockTime
	EOD       ClockTime
	Holidays  map[string]bool
}

// DefaultSchedule is the /ES cash-session schedule: 09:30, 09:45, 10:00, 16:00 New York time.
func DefaultSchedule() (Schedule, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to load time zone: %w", err)
	}
	return Schedule{
		Loc:       loc,
		Open:      ClockTime{9, 30},
		RangeEnd:  ClockTime{9, 45},
		Breakeven: ClockTime{10, 0},
		EOD:       ClockTime{16, 0},
	}, nil
}

// Validate checks the times are in trading order.
func (s Schedule) Validate() error {
	if s.Loc == nil {
		return fmt.Errorf("schedule time zone is not set")
	}
	day := time.Date(2000, 1, 3, 0, 0, 0, 0, s.Loc)
	t := s.Times(day)
	if !t.Open.Before(t.RangeEnd) || !t.RangeEnd.Before(t.EOD) || t.Breakeven.Before(t.RangeEnd) || !t.Breakeven.Before(t.EOD) {
		return fmt.Errorf("schedule out of order: open=%s range_end=%s breakeven=%s eod=%s",
			s.Open, s.RangeEnd, s.Breakeven, s.EOD)
	}
	return nil
}

// SessionDate is the exchange-local date key of t (YYYY-MM-DD).
func (s Schedule) SessionDate(t time.Time) string {
	return t.In(s.Loc).Format(time.DateOnly)
}

// Times returns the scheduled instants for the trading day containing day.
func (s Schedule) Times(day time.Time) SessionTimes {
	return SessionTimes{
		Open:      s.Open.On(day, s.Loc),
		RangeEnd:  s.RangeEnd.On(day, s.Loc),
		Breakeven: s.Breakeven.On(day, s.Loc),
		EOD:       s.EOD.On(day, s.Loc),
	}
}

// IsTradingDay is false on weekends and configured holidays.
func (s Schedule) IsTradingDay(day time.Time) bool {
	d := day.In(s.Loc)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !s.Holidays[d.Format(time.DateOnly)]
}

// PreviousTradingDay returns the last trading day strictly before day.
func (s Schedule) PreviousTradingDay(day time.Time) time.Time {
	d := day.In(s.Loc)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.Loc)
	for i := 0; i < 14; i++ {
		d = d.AddDate(0, 0, -1)
		if s.IsTradingDay(d) {
			return d
		}
	}
	return d
}
