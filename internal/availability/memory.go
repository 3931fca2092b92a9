package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps schedules and slots in process. A single mutex makes
// every check-and-set atomic.
type MemoryRepository struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]Schedule
	slots     map[uuid.UUID]Slot
	now       func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		schedules: make(map[uuid.UUID]Schedule),
		slots:     make(map[uuid.UUID]Slot),
		now:       time.Now,
	}
}

func (r *MemoryRepository) ReserveIfAvailable(_ context.Context, slotID uuid.UUID, holder string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[slotID]
	if !ok || slot.State != SlotAvailable {
		return false, nil
	}
	slot.State = SlotReserved
	slot.Holder = holder
	slot.UpdatedAt = r.now()
	r.slots[slotID] = slot
	return true, nil
}

func (r *MemoryRepository) Release(_ context.Context, slotID uuid.UUID, holder string) error {
	if holder == "" {
		return ErrHolderRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}
	if slot.State == SlotAvailable {
		return nil
	}
	if slot.Holder != holder {
		return ErrSlotHeldByOther
	}
	slot.State = SlotAvailable
	slot.Holder = ""
	slot.UpdatedAt = r.now()
	r.slots[slotID] = slot
	return nil
}

func (r *MemoryRepository) GetSlot(_ context.Context, slotID uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.slots[slotID]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &slot, nil
}

func (r *MemoryRepository) GetSchedule(_ context.Context, doctorID uuid.UUID, weekday Weekday) (*Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.findSchedule(doctorID, weekday); ok {
		return &s, nil
	}
	return nil, ErrScheduleNotFound
}

func (r *MemoryRepository) ReplaceSchedule(_ context.Context, schedule Schedule, slots []Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.findSchedule(schedule.Config.DoctorID, schedule.Config.Weekday); ok {
		for _, s := range r.slots {
			if s.ScheduleID == old.ID && s.State == SlotReserved {
				return ErrScheduleHasReservations
			}
		}
		for id, s := range r.slots {
			if s.ScheduleID == old.ID {
				delete(r.slots, id)
			}
		}
		delete(r.schedules, old.ID)
	}

	now := r.now()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	r.schedules[schedule.ID] = schedule
	for _, s := range slots {
		s.UpdatedAt = now
		r.slots[s.ID] = s
	}
	return nil
}

func (r *MemoryRepository) ListSlots(_ context.Context, doctorID uuid.UUID, weekday Weekday) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	schedule, ok := r.findSchedule(doctorID, weekday)
	if !ok {
		return nil, nil
	}
	var out []Slot
	for _, s := range r.slots {
		if s.ScheduleID == schedule.ID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (r *MemoryRepository) findSchedule(doctorID uuid.UUID, weekday Weekday) (Schedule, bool) {
	for _, s := range r.schedules {
		if s.Config.DoctorID == doctorID && s.Config.Weekday == weekday {
			return s, true
		}
	}
	return Schedule{}, false
}
