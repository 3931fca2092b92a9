package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/medical-appointment-scheduling/internal/redis"
	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

type fakeDoctors struct {
	known map[uuid.UUID]bool
	err   error
}

func (f fakeDoctors) DoctorExists(_ context.Context, id uuid.UUID) (bool, error) {
	return f.known[id], f.err
}

type fakeLocker struct {
	busy bool
	keys []string
}

func (l *fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.busy {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

func newTestService(t *testing.T, doctorID uuid.UUID) (*Service, *MemoryRepository, *fakeLocker) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	repo := NewMemoryRepository()
	locker := &fakeLocker{}
	svc := NewService(repo, fakeDoctors{known: map[uuid.UUID]bool{doctorID: true}}, locker, nil, logger)
	return svc, repo, locker
}

func TestConfigureScheduleStoresSlots(t *testing.T) {
	doctorID := uuid.New()
	svc, _, locker := newTestService(t, doctorID)

	schedule, slots, err := svc.ConfigureSchedule(context.Background(), ScheduleConfig{
		DoctorID:        doctorID,
		Weekday:         Monday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "09:00"),
		DurationMinutes: 20,
	})
	require.NoError(t, err)
	assert.Len(t, slots, 3)
	assert.Equal(t, []string{redisclient.ScheduleLockKey(doctorID, "MONDAY")}, locker.keys)

	// 2024-01-01 was a Monday
	date := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	listed, err := svc.Availability(context.Background(), doctorID, date)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, schedule.ID, listed[0].ScheduleID)

	listed, err = svc.Availability(context.Background(), doctorID, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestConfigureScheduleUnknownDoctor(t *testing.T) {
	svc, _, _ := newTestService(t, uuid.New())

	_, _, err := svc.ConfigureSchedule(context.Background(), ScheduleConfig{
		DoctorID:        uuid.New(),
		Weekday:         Monday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "09:00"),
		DurationMinutes: 20,
	})
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestConfigureScheduleLockBusy(t *testing.T) {
	doctorID := uuid.New()
	svc, _, locker := newTestService(t, doctorID)
	locker.busy = true

	_, _, err := svc.ConfigureSchedule(context.Background(), ScheduleConfig{
		DoctorID:        doctorID,
		Weekday:         Monday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "09:00"),
		DurationMinutes: 20,
	})
	assert.ErrorIs(t, err, ErrScheduleBusy)
	assert.ErrorIs(t, err, sentinel.ErrConflict)
}

func TestConfigureScheduleDoctorLookupFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	boom := errors.New("registry down")
	svc := NewService(NewMemoryRepository(), fakeDoctors{err: boom}, nil, nil, logger)

	_, _, err := svc.ConfigureSchedule(context.Background(), ScheduleConfig{
		DoctorID:        uuid.New(),
		Weekday:         Monday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "09:00"),
		DurationMinutes: 20,
	})
	assert.ErrorIs(t, err, boom)
}

func TestConfigureScheduleRegenerationPolicy(t *testing.T) {
	ctx := context.Background()
	doctorID := uuid.New()
	svc, _, _ := newTestService(t, doctorID)

	cfg := ScheduleConfig{
		DoctorID:        doctorID,
		Weekday:         Wednesday,
		StartTime:       mustClock(t, "08:00"),
		EndTime:         mustClock(t, "10:00"),
		DurationMinutes: 30,
	}
	_, slots, err := svc.ConfigureSchedule(ctx, cfg)
	require.NoError(t, err)

	// nothing reserved: replaced
	cfg.DurationMinutes = 60
	_, replaced, err := svc.ConfigureSchedule(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, replaced, 2)
	_, err = svc.GetSlot(ctx, slots[0].ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	ok, err := svc.Reserve(ctx, replaced[0].ID, "appt-1")
	require.NoError(t, err)
	require.True(t, ok)

	// reserved slot present: rejected
	cfg.DurationMinutes = 15
	_, _, err = svc.ConfigureSchedule(ctx, cfg)
	assert.ErrorIs(t, err, ErrScheduleHasReservations)
}

func TestServiceReserveRequiresHolder(t *testing.T) {
	svc, _, _ := newTestService(t, uuid.New())

	_, err := svc.Reserve(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrHolderRequired)
}

func TestAvailabilityUnknownDoctor(t *testing.T) {
	svc, _, _ := newTestService(t, uuid.New())

	_, err := svc.Availability(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}
