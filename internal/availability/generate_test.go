package availability

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T, s string) Clock {
	t.Helper()
	c, err := ParseClock(s)
	require.NoError(t, err)
	return c
}

func TestGenerateSlotsHourInTwentyMinuteSlots(t *testing.T) {
	cfg := ScheduleConfig{
		DoctorID:        uuid.New(),
		Weekday:         Monday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "09:00"),
		DurationMinutes: 20,
	}

	slots, err := GenerateSlots(uuid.New(), cfg)
	require.NoError(t, err)
	require.Len(t, slots, 3)

	want := [][2]string{{"08:00", "08:20"}, {"08:20", "08:40"}, {"08:40", "09:00"}}
	for i, s := range slots {
		assert.Equal(t, want[i][0], s.StartTime.String())
		assert.Equal(t, want[i][1], s.EndTime.String())
		assert.Equal(t, SlotAvailable, s.State)
		assert.Empty(t, s.Holder)
	}
}

func TestGenerateSlotsProperties(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		duration int
		count    int
	}{
		{"exact fit", "09:00", "12:00", 30, 6},
		{"remainder dropped", "08:00", "09:10", 20, 3},
		{"single slot", "10:00", "10:45", 45, 1},
		{"duration longer than window", "10:00", "10:30", 45, 0},
		{"whole day", "00:00", "23:59", 60, 23},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ScheduleConfig{
				DoctorID:        uuid.New(),
				Weekday:         Friday,
				StartTime:       mustClock(t, tc.start),
				EndTime:         mustClock(t, tc.end),
				DurationMinutes: tc.duration,
			}
			scheduleID := uuid.New()

			slots, err := GenerateSlots(scheduleID, cfg)
			require.NoError(t, err)
			require.Len(t, slots, tc.count)

			for i, s := range slots {
				assert.Equal(t, scheduleID, s.ScheduleID)
				assert.Equal(t, Clock(tc.duration), s.EndTime-s.StartTime)
				assert.GreaterOrEqual(t, s.StartTime, cfg.StartTime)
				assert.LessOrEqual(t, s.EndTime, cfg.EndTime)
				if i > 0 {
					assert.Equal(t, slots[i-1].EndTime, s.StartTime, "slots must be contiguous")
				}
			}
		})
	}
}

func TestGenerateSlotsIsDeterministic(t *testing.T) {
	cfg := ScheduleConfig{
		DoctorID:        uuid.New(),
		Weekday:         Tuesday,
		StartTime:       mustClock(t, "14:00"),
		EndTime:         mustClock(t, "16:00"),
		DurationMinutes: 15,
	}
	scheduleID := uuid.New()

	first, err := GenerateSlots(scheduleID, cfg)
	require.NoError(t, err)
	second, err := GenerateSlots(scheduleID, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	seen := make(map[uuid.UUID]bool)
	for _, s := range first {
		assert.False(t, seen[s.ID], "duplicate slot id %s", s.ID)
		seen[s.ID] = true
	}
}

func TestGenerateSlotsRejectsInvalidConfig(t *testing.T) {
	valid := ScheduleConfig{
		DoctorID:        uuid.New(),
		Weekday:         Monday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "12:00"),
		DurationMinutes: 30,
	}

	cases := map[string]func(c *ScheduleConfig){
		"zero duration":   func(c *ScheduleConfig) { c.DurationMinutes = 0 },
		"start after end": func(c *ScheduleConfig) { c.StartTime, c.EndTime = c.EndTime, c.StartTime },
		"equal bounds":    func(c *ScheduleConfig) { c.EndTime = c.StartTime },
		"missing doctor":  func(c *ScheduleConfig) { c.DoctorID = uuid.Nil },
		"unknown weekday": func(c *ScheduleConfig) { c.Weekday = "FUNDAY" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			_, err := GenerateSlots(uuid.New(), cfg)
			assert.ErrorIs(t, err, ErrInvalidSchedule)
		})
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("07:05")
	require.NoError(t, err)
	assert.Equal(t, Clock(7*60+5), c)
	assert.Equal(t, "07:05", c.String())

	_, err = ParseClock("7am")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestParseWeekday(t *testing.T) {
	w, err := ParseWeekday(" wednesday ")
	require.NoError(t, err)
	assert.Equal(t, Wednesday, w)

	_, err = ParseWeekday("someday")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}
