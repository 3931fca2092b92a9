//go:build integration

package availability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/medical-appointment-scheduling/internal/db"
	"github.com/hackgods/medical-appointment-scheduling/internal/testutil/containers"
)

func insertDoctor(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO doctors (id, name, specialty) VALUES ($1, $2, $3)`, id, "Dr. "+id.String()[:8], "Cardiology")
	require.NoError(t, err)
	return id
}

func storeSchedule(t *testing.T, repo *PgRepository, cfg ScheduleConfig) []Slot {
	t.Helper()
	schedule := Schedule{ID: uuid.New(), Config: cfg}
	slots, err := GenerateSlots(schedule.ID, cfg)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceSchedule(context.Background(), schedule, slots))
	return slots
}

func TestPgLedgerSingleWinner(t *testing.T) {
	pool := containers.NewPostgres(t, db.SchemaRegistry)
	repo := NewPgRepository(pool)
	ctx := context.Background()

	slots := storeSchedule(t, repo, ScheduleConfig{
		DoctorID:        insertDoctor(t, pool),
		Weekday:         Monday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "09:00"),
		DurationMinutes: 20,
	})
	slotID := slots[0].ID

	const callers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.ReserveIfAvailable(ctx, slotID, fmt.Sprintf("holder-%d", i))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())

	slot, err := repo.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, SlotReserved, slot.State)
	assert.NotEmpty(t, slot.Holder)
}

func TestPgLedgerRelease(t *testing.T) {
	pool := containers.NewPostgres(t, db.SchemaRegistry)
	repo := NewPgRepository(pool)
	ctx := context.Background()

	slots := storeSchedule(t, repo, ScheduleConfig{
		DoctorID:        insertDoctor(t, pool),
		Weekday:         Tuesday,
		StartTime:       mustClock(t, "10:00"),
		EndTime:         mustClock(t, "11:00"),
		DurationMinutes: 30,
	})
	slotID := slots[1].ID

	ok, err := repo.ReserveIfAvailable(ctx, slotID, "appt-1")
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, repo.Release(ctx, slotID, "appt-2"), ErrSlotHeldByOther)
	require.NoError(t, repo.Release(ctx, slotID, "appt-1"))
	require.NoError(t, repo.Release(ctx, slotID, "appt-1"))

	slot, err := repo.GetSlot(ctx, slotID)
	require.NoError(t, err)
	assert.Equal(t, SlotAvailable, slot.State)
	assert.Empty(t, slot.Holder)

	assert.ErrorIs(t, repo.Release(ctx, uuid.New(), "appt-1"), ErrSlotNotFound)

	ok, err = repo.ReserveIfAvailable(ctx, uuid.New(), "appt-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPgReplaceSchedule(t *testing.T) {
	pool := containers.NewPostgres(t, db.SchemaRegistry)
	repo := NewPgRepository(pool)
	ctx := context.Background()
	doctorID := insertDoctor(t, pool)

	cfg := ScheduleConfig{
		DoctorID:        doctorID,
		Weekday:         Friday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "10:00"),
		DurationMinutes: 30,
	}
	first := storeSchedule(t, repo, cfg)

	listed, err := repo.ListSlots(ctx, doctorID, Friday)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	for i := 1; i < len(listed); i++ {
		assert.Less(t, listed[i-1].StartTime, listed[i].StartTime)
	}

	// nothing reserved yet: replaced
	cfg.DurationMinutes = 60
	second := storeSchedule(t, repo, cfg)
	listed, err = repo.ListSlots(ctx, doctorID, Friday)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	_, err = repo.GetSlot(ctx, first[0].ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	schedule, err := repo.GetSchedule(ctx, doctorID, Friday)
	require.NoError(t, err)
	assert.Equal(t, 60, schedule.Config.DurationMinutes)
	assert.Equal(t, "08:00", schedule.Config.StartTime.String())

	ok, err := repo.ReserveIfAvailable(ctx, second[0].ID, "appt-1")
	require.NoError(t, err)
	require.True(t, ok)

	cfg.DurationMinutes = 15
	schedule3 := Schedule{ID: uuid.New(), Config: cfg}
	slots3, err := GenerateSlots(schedule3.ID, cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.ReplaceSchedule(ctx, schedule3, slots3), ErrScheduleHasReservations)

	// the rejected replacement left the old schedule intact
	listed, err = repo.ListSlots(ctx, doctorID, Friday)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	_, err = repo.GetSchedule(ctx, doctorID, Monday)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestPgReplaceScheduleRacingReservation(t *testing.T) {
	pool := containers.NewPostgres(t, db.SchemaRegistry)
	repo := NewPgRepository(pool)
	ctx := context.Background()

	for round := 0; round < 25; round++ {
		cfg := ScheduleConfig{
			DoctorID:        insertDoctor(t, pool),
			Weekday:         Wednesday,
			StartTime:       mustClock(t, "08:00"),
			EndTime:         mustClock(t, "09:00"),
			DurationMinutes: 20,
		}
		old := storeSchedule(t, repo, cfg)

		replacement := Schedule{ID: uuid.New(), Config: cfg}
		newSlots, err := GenerateSlots(replacement.ID, cfg)
		require.NoError(t, err)

		var (
			wg         sync.WaitGroup
			reserved   bool
			reserveErr error
			replaceErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			reserved, reserveErr = repo.ReserveIfAvailable(ctx, old[0].ID, "appt-1")
		}()
		go func() {
			defer wg.Done()
			replaceErr = repo.ReplaceSchedule(ctx, replacement, newSlots)
		}()
		wg.Wait()
		require.NoError(t, reserveErr)

		slot, getErr := repo.GetSlot(ctx, old[0].ID)
		listed, err := repo.ListSlots(ctx, cfg.DoctorID, Wednesday)
		require.NoError(t, err)
		require.Len(t, listed, 3)

		if reserved {
			// the reservation won: the old schedule must survive it
			require.ErrorIs(t, replaceErr, ErrScheduleHasReservations, "round %d", round)
			require.NoError(t, getErr)
			assert.Equal(t, SlotReserved, slot.State)
			assert.Equal(t, "appt-1", slot.Holder)
		} else {
			require.NoError(t, replaceErr, "round %d", round)
			assert.ErrorIs(t, getErr, ErrSlotNotFound)
			for _, s := range listed {
				assert.Equal(t, SlotAvailable, s.State)
			}
		}
	}
}
