package cron

import (
	"errors"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Trigger names a firing schedule. Every firing runs one full cycle of the
// registered jobs.
type Trigger struct {
	Name     string
	Schedule robfig.Schedule
}

// Every fires at a fixed interval, rounded down to whole seconds.
func Every(name string, interval time.Duration) (Trigger, error) {
	if name == "" {
		return Trigger{}, errors.New("trigger name required")
	}
	if interval < time.Second {
		return Trigger{}, fmt.Errorf("trigger %s: interval must be at least 1s", name)
	}
	return Trigger{Name: name, Schedule: robfig.Every(interval)}, nil
}

// DailyAt fires once a day at hour:minute in loc.
func DailyAt(name string, hour, minute int, loc *time.Location) (Trigger, error) {
	if name == "" {
		return Trigger{}, errors.New("trigger name required")
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Trigger{}, fmt.Errorf("trigger %s: invalid time %02d:%02d", name, hour, minute)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Trigger{
		Name: name,
		Schedule: &robfig.SpecSchedule{
			Second:   1 << 0,
			Minute:   1 << uint(minute),
			Hour:     1 << uint(hour),
			Dom:      span(1, 31),
			Month:    span(1, 12),
			Dow:      span(0, 6),
			Location: loc,
		},
	}, nil
}

func span(from, to uint) uint64 {
	var bits uint64
	for i := from; i <= to; i++ {
		bits |= 1 << i
	}
	return bits
}
