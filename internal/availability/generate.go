package availability

import (
	"github.com/google/uuid"
)

// GenerateSlots partitions [StartTime, EndTime) into contiguous slots of
// DurationMinutes. A trailing remainder shorter than the duration is dropped.
// Slot ids are derived from the schedule id and start time, so generating the
// same schedule twice yields the same identities.
func GenerateSlots(scheduleID uuid.UUID, cfg ScheduleConfig) ([]Slot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	step := Clock(cfg.DurationMinutes)
	slots := make([]Slot, 0, int(cfg.EndTime-cfg.StartTime)/cfg.DurationMinutes)
	for start := cfg.StartTime; start+step <= cfg.EndTime; start += step {
		slots = append(slots, Slot{
			ID:         slotID(scheduleID, start),
			ScheduleID: scheduleID,
			StartTime:  start,
			EndTime:    start + step,
			State:      SlotAvailable,
		})
	}
	return slots, nil
}

func slotID(scheduleID uuid.UUID, start Clock) uuid.UUID {
	return uuid.NewSHA1(scheduleID, []byte(start.String()))
}
