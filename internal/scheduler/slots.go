package scheduler

import (
	"fmt"
	"slices"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// DefaultTime is the slot preselected on a fresh booking form.
	DefaultTime = "09:00"
)

// Slots is the closed, ordered set of bookable times of day.
type Slots struct {
	times []string
}

// NewSlots enumerates every time from start to end inclusive, step apart.
func NewSlots(start, end string, step time.Duration) (Slots, error) {
	from, err := minuteOfDay(start)
	if err != nil {
		return Slots{}, fmt.Errorf("slot start: %w", err)
	}
	to, err := minuteOfDay(end)
	if err != nil {
		return Slots{}, fmt.Errorf("slot end: %w", err)
	}
	if step < time.Minute || step%time.Minute != 0 {
		return Slots{}, fmt.Errorf("slot step %s must be a whole number of minutes", step)
	}
	if to < from {
		return Slots{}, fmt.Errorf("slot end %s before start %s", end, start)
	}
	inc := int(step / time.Minute)
	var s Slots
	for m := from; m <= to; m += inc {
		s.times = append(s.times, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return s, nil
}

// DefaultSlots is 09:00 to 17:00 every half hour.
func DefaultSlots() Slots {
	s, _ := NewSlots("09:00", "17:00", 30*time.Minute)
	return s
}

func (s Slots) Times() []string { return slices.Clone(s.times) }

func (s Slots) Contains(t string) bool { return slices.Contains(s.times, t) }

// Default is DefaultTime when bookable, otherwise the first slot.
func (s Slots) Default() string {
	if s.Contains(DefaultTime) || len(s.times) == 0 {
		return DefaultTime
	}
	return s.times[0]
}

func minuteOfDay(hhmm string) (int, error) {
	t, err := time.Parse(TimeLayout, hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// startTime combines a calendar day and a slot in loc.
func startTime(date, slot string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, err
	}
	m, err := minuteOfDay(slot)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, m/60, m%60, 0, 0, loc), nil
}
