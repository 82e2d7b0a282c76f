package cadence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

const (
	defaultWeekday    = time.Monday
	defaultDayOfMonth = 1
	maxAttempts       = 3
)

var (
	ErrInvalidSpec = errors.New("invalid cadence")
	ErrNoFireTime  = errors.New("no valid fire time found")
)

// Spec is a frequency plus its anchors. Nil anchors fall back to Monday and
// the first of the month. Location defaults to UTC.
type Spec struct {
	Frequency  enums.Frequency
	DayOfWeek  *int
	DayOfMonth *int
	Hour       int
	Minute     int
	Location   *time.Location
}

// SpecFromSchedule builds the cadence of a persisted schedule.
func SpecFromSchedule(s models.Schedule) (Spec, error) {
	loc, err := LoadLocation(s.Timezone)
	if err != nil {
		return Spec{}, err
	}
	return Spec{
		Frequency:  s.Frequency,
		DayOfWeek:  s.DayOfWeek,
		DayOfMonth: s.DayOfMonth,
		Hour:       s.SendHour,
		Minute:     s.SendMinute,
		Location:   loc,
	}, nil
}

// LoadLocation resolves an IANA zone name, treating blank as UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidSpec, name, err)
	}
	return loc, nil
}

// Validate checks anchors against their allowed ranges.
func (s Spec) Validate() error {
	if !s.Frequency.IsValid() {
		return fmt.Errorf("%w: frequency %q", ErrInvalidSpec, s.Frequency)
	}
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidSpec, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("%w: minute %d", ErrInvalidSpec, s.Minute)
	}
	if s.DayOfWeek != nil && (*s.DayOfWeek < 0 || *s.DayOfWeek > 6) {
		return fmt.Errorf("%w: day of week %d", ErrInvalidSpec, *s.DayOfWeek)
	}
	if s.DayOfMonth != nil && (*s.DayOfMonth < 1 || *s.DayOfMonth > 31) {
		return fmt.Errorf("%w: day of month %d", ErrInvalidSpec, *s.DayOfMonth)
	}
	return nil
}

// NextFire returns the first instant strictly after now that matches spec at
// exactly Hour:Minute in spec.Location.
//
// Week cadences never fire on the current weekday: an anchor equal to today
// moves a full week out. Month cadences move 1, 3 or 12 calendar months from
// now's month; an anchor past the end of the target month is clamped to its
// last day. A candidate that is not after now, or whose wall clock was
// shifted by a DST gap, is retried one day later, a bounded number of times.
func NextFire(now time.Time, spec Spec) (time.Time, error) {
	if err := spec.Validate(); err != nil {
		return time.Time{}, err
	}
	loc := spec.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	base := anchorDate(local, spec)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := time.Date(base.year, base.month, base.day+attempt, spec.Hour, spec.Minute, 0, 0, loc)
		if !candidate.After(now) {
			continue
		}
		if candidate.Hour() != spec.Hour || candidate.Minute() != spec.Minute {
			continue
		}
		return candidate, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s after %s", ErrNoFireTime, spec.Frequency, now.Format(time.RFC3339))
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func anchorDate(local time.Time, spec Spec) civilDate {
	if step := spec.Frequency.MonthStep(); step > 0 {
		first := time.Date(local.Year(), local.Month()+time.Month(step), 1, 0, 0, 0, 0, time.UTC)
		day := defaultDayOfMonth
		if spec.DayOfMonth != nil {
			day = *spec.DayOfMonth
		}
		if last := DaysIn(first.Year(), first.Month()); day > last {
			day = last
		}
		return civilDate{year: first.Year(), month: first.Month(), day: day}
	}

	target := int(defaultWeekday)
	if spec.DayOfWeek != nil {
		target = *spec.DayOfWeek
	}
	offset := (target - int(local.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	if spec.Frequency == enums.FrequencyBiweekly {
		offset += 7
	}
	return civilDate{year: local.Year(), month: local.Month(), day: local.Day() + offset}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
