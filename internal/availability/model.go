package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdays = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range weekdays {
		if w == known {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, s)
}

// WeekdayOf maps a calendar date to the weekday its schedules are stored under.
func WeekdayOf(date time.Time) Weekday {
	return weekdays[date.Weekday()]
}

type SlotState string

const (
	SlotAvailable SlotState = "AVAILABLE"
	SlotReserved  SlotState = "RESERVED"
)

// Clock is a wall-clock time of day in minutes since midnight.
type Clock int

const minutesPerDay = 24 * 60

func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidSchedule, s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ScheduleConfig describes one weekly block of availability for a doctor.
type ScheduleConfig struct {
	DoctorID        uuid.UUID
	Weekday         Weekday
	StartTime       Clock
	EndTime         Clock
	DurationMinutes int
}

func (c ScheduleConfig) Validate() error {
	switch {
	case c.DoctorID == uuid.Nil:
		return fmt.Errorf("%w: doctor id is required", ErrInvalidSchedule)
	case c.DurationMinutes <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidSchedule)
	case c.StartTime < 0 || c.EndTime > minutesPerDay:
		return fmt.Errorf("%w: times must fall within one day", ErrInvalidSchedule)
	case c.StartTime >= c.EndTime:
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidSchedule)
	}
	if _, err := ParseWeekday(string(c.Weekday)); err != nil {
		return err
	}
	return nil
}

type Schedule struct {
	ID        uuid.UUID
	Config    ScheduleConfig
	CreatedAt time.Time
}

type Slot struct {
	ID         uuid.UUID
	ScheduleID uuid.UUID
	StartTime  Clock
	EndTime    Clock
	State      SlotState
	// Holder identifies who reserved the slot (the appointment id for bookings).
	Holder    string
	UpdatedAt time.Time
}

func (s Slot) Duration() time.Duration {
	return time.Duration(s.EndTime-s.StartTime) * time.Minute
}
