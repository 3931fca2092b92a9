package availability

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSchedule(t *testing.T, repo *MemoryRepository, doctorID uuid.UUID, weekday Weekday) []Slot {
	t.Helper()
	cfg := ScheduleConfig{
		DoctorID:        doctorID,
		Weekday:         weekday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "09:00"),
		DurationMinutes: 20,
	}
	schedule := Schedule{ID: uuid.New(), Config: cfg}
	slots, err := GenerateSlots(schedule.ID, cfg)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceSchedule(context.Background(), schedule, slots))
	return slots
}

func TestReserveIfAvailableExactlyOneWinner(t *testing.T) {
	repo := NewMemoryRepository()
	slot := seedSchedule(t, repo, uuid.New(), Monday)[0]

	const callers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := repo.ReserveIfAvailable(context.Background(), slot.ID, uuid.NewString())
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	got, err := repo.GetSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, SlotReserved, got.State)
}

func TestReserveIfAvailableMissingSlotIsFalse(t *testing.T) {
	repo := NewMemoryRepository()

	ok, err := repo.ReserveIfAvailable(context.Background(), uuid.New(), "holder")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	slot := seedSchedule(t, repo, uuid.New(), Monday)[1]

	ok, err := repo.ReserveIfAvailable(ctx, slot.ID, "appt-1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, repo.Release(ctx, slot.ID, "appt-2"), ErrSlotHeldByOther)
	assert.ErrorIs(t, repo.Release(ctx, slot.ID, ""), ErrHolderRequired)

	require.NoError(t, repo.Release(ctx, slot.ID, "appt-1"))
	got, err := repo.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, SlotAvailable, got.State)
	assert.Empty(t, got.Holder)

	// releasing twice is a no-op
	require.NoError(t, repo.Release(ctx, slot.ID, "appt-1"))

	assert.ErrorIs(t, repo.Release(ctx, uuid.New(), "appt-1"), ErrSlotNotFound)
}

func TestReplaceScheduleRejectsWhenReserved(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	doctorID := uuid.New()
	old := seedSchedule(t, repo, doctorID, Thursday)

	ok, err := repo.ReserveIfAvailable(ctx, old[0].ID, "appt-1")
	require.NoError(t, err)
	require.True(t, ok)

	replacement := Schedule{ID: uuid.New(), Config: ScheduleConfig{
		DoctorID:        doctorID,
		Weekday:         Thursday,
		StartTime:       mustClock(t, "10:00"),
		EndTime:         mustClock(t, "11:00"),
		DurationMinutes: 30,
	}}
	slots, err := GenerateSlots(replacement.ID, replacement.Config)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.ReplaceSchedule(ctx, replacement, slots), ErrScheduleHasReservations)

	listed, err := repo.ListSlots(ctx, doctorID, Thursday)
	require.NoError(t, err)
	assert.Len(t, listed, len(old))

	require.NoError(t, repo.Release(ctx, old[0].ID, "appt-1"))
	require.NoError(t, repo.ReplaceSchedule(ctx, replacement, slots))

	listed, err = repo.ListSlots(ctx, doctorID, Thursday)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "10:00", listed[0].StartTime.String())

	_, err = repo.GetSlot(ctx, old[0].ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}
