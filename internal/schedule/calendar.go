package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidDate     = errors.New("date is malformed or outside the booking horizon")
	ErrMalformedWindow = errors.New("malformed working-hours window")
)

// Window is one working-hours interval on a weekday, e.g. {Mon 09:00 13:00}.
// Start and End are "HH:MM" clock times; a doctor may have several windows on
// the same weekday.
type Window struct {
	Weekday time.Weekday `json:"weekday"`
	Start   string       `json:"start"`
	End     string       `json:"end"`
}

// WeeklyTemplate is a doctor's full working-hours template.
type WeeklyTemplate []Window

// Doctor carries the scheduling-relevant identity of a clinician. Staff
// management owns the rest.
type Doctor struct {
	ID           uuid.UUID
	Name         string
	Specialty    *string
	SlotMinutes  int
	WorkingHours WeeklyTemplate
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const dayLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD date into a UTC midnight instant.
func ParseDay(s string) (time.Time, error) {
	day, err := time.ParseInLocation(dayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return day, nil
}

// FormatDay is the inverse of ParseDay.
func FormatDay(day time.Time) string {
	return day.UTC().Format(dayLayout)
}

// GenerateSlots derives the ordered slot start times for one day from a
// working-hours template. Pure function of its arguments.
//
// Slots whose start time is at or before now are excluded, so today's past
// slots are never offered. The day itself must not be in the past and must
// fall within horizonDays of now, otherwise ErrInvalidDate.
func GenerateSlots(tmpl WeeklyTemplate, slotMinutes int, day, now time.Time, horizonDays int) ([]time.Time, error) {
	if slotMinutes <= 0 {
		return nil, fmt.Errorf("%w: slot granularity %d minutes", ErrMalformedWindow, slotMinutes)
	}

	day = day.UTC().Truncate(24 * time.Hour)
	today := now.UTC().Truncate(24 * time.Hour)

	if day.Before(today) {
		return nil, fmt.Errorf("%w: %s is in the past", ErrInvalidDate, FormatDay(day))
	}
	if day.After(today.AddDate(0, 0, horizonDays)) {
		return nil, fmt.Errorf("%w: %s is beyond the %d-day horizon", ErrInvalidDate, FormatDay(day), horizonDays)
	}

	step := time.Duration(slotMinutes) * time.Minute
	seen := make(map[int64]struct{})
	var slots []time.Time

	for _, w := range tmpl {
		if w.Weekday != day.Weekday() {
			continue
		}

		start, err := clockTimeOn(day, w.Start)
		if err != nil {
			return nil, err
		}
		end, err := clockTimeOn(day, w.End)
		if err != nil {
			return nil, err
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%w: %s-%s", ErrMalformedWindow, w.Start, w.End)
		}

		for t := start; !t.Add(step).After(end); t = t.Add(step) {
			if !t.After(now) {
				continue
			}
			if _, dup := seen[t.Unix()]; dup {
				continue
			}
			seen[t.Unix()] = struct{}{}
			slots = append(slots, t)
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Before(slots[j]) })
	return slots, nil
}

// OnCalendar reports whether slotTime is a slot GenerateSlots would offer for
// its day. Used by booking to reject arbitrary client timestamps.
func OnCalendar(tmpl WeeklyTemplate, slotMinutes int, slotTime, now time.Time, horizonDays int) (bool, error) {
	day := slotTime.UTC().Truncate(24 * time.Hour)

	slots, err := GenerateSlots(tmpl, slotMinutes, day, now, horizonDays)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.Equal(slotTime) {
			return true, nil
		}
	}
	return false, nil
}

func clockTimeOn(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation("15:04", hhmm, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedWindow, hhmm)
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}
