package strategy

import (
	"context"
	"fmt"
	"time"
)

// EventCalendar answers whether a date carries a scheduled high-impact event (FOMC and the like).
type EventCalendar interface {
	IsEventDay(ctx context.Context, day time.Time) (bool, error)
}

// StaticCalendar is an EventCalendar backed by a fixed list of YYYY-MM-DD dates.
type StaticCalendar struct {
	dates map[string]struct{}
}

// NewStaticCalendar validates and indexes the given dates.
func NewStaticCalendar(dates []string) (*StaticCalendar, error) {
	c := &StaticCalendar{dates: make(map[string]struct{}, len(dates))}
	for _, d := range dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("failed to parse event date %q: %w", d, err)
		}
		c.dates[d] = struct{}{}
	}
	return c, nil
}

func (c *StaticCalendar) IsEventDay(_ context.Context, day time.Time) (bool, error) {
	_, ok := c.dates[day.Format("2006-01-02")]
	return ok, nil
}

// Len returns the number of configured event dates.
func (c *StaticCalendar) Len() int { return len(c.dates) }
