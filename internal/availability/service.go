package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
	redisclient "github.com/hackgods/medical-appointment-scheduling/internal/redis"
)

// DoctorLookup answers whether a doctor is registered.
type DoctorLookup interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo    Repository
	doctors DoctorLookup
	locker  redisclient.Locker
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewService wires the availability service. locker may be nil when a single
// process owns the schedules (tests, local runs).
func NewService(repo Repository, doctors DoctorLookup, locker redisclient.Locker, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		repo:    repo,
		doctors: doctors,
		locker:  locker,
		metrics: m,
		log:     log,
	}
}

// ConfigureSchedule generates the slots for a weekly schedule and stores them,
// replacing the doctor's previous schedule for that weekday. Replacement is
// refused while any old slot is reserved.
func (s *Service) ConfigureSchedule(ctx context.Context, cfg ScheduleConfig) (*Schedule, []Slot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	exists, err := s.doctors.DoctorExists(ctx, cfg.DoctorID)
	if err != nil {
		return nil, nil, fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return nil, nil, ErrDoctorNotFound
	}

	schedule := Schedule{ID: uuid.New(), Config: cfg}
	slots, err := GenerateSlots(schedule.ID, cfg)
	if err != nil {
		return nil, nil, err
	}

	store := func(ctx context.Context) error {
		return s.repo.ReplaceSchedule(ctx, schedule, slots)
	}

	if s.locker == nil {
		err = store(ctx)
	} else {
		err = s.locker.WithLock(ctx, redisclient.ScheduleLockKey(cfg.DoctorID, string(cfg.Weekday)), store)
	}
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, nil, ErrScheduleBusy
		}
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"schedule_id": schedule.ID,
		"doctor_id":   cfg.DoctorID,
		"weekday":     cfg.Weekday,
		"slots":       len(slots),
	}).Info("schedule configured")

	return &schedule, slots, nil
}

// Availability returns the slots of the doctor's schedule for the weekday of
// date, both available and reserved, ordered by start time.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	exists, err := s.doctors.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("lookup doctor: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	slots, err := s.repo.ListSlots(ctx, doctorID, WeekdayOf(date))
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (s *Service) Reserve(ctx context.Context, slotID uuid.UUID, holder string) (bool, error) {
	if holder == "" {
		return false, ErrHolderRequired
	}

	ok, err := s.repo.ReserveIfAvailable(ctx, slotID, holder)
	if err != nil {
		return false, err
	}

	if ok {
		s.metrics.IncrementReservation("reserved")
		s.log.WithFields(logrus.Fields{"slot_id": slotID, "holder": holder}).Debug("slot reserved")
	} else {
		s.metrics.IncrementReservation("unavailable")
	}
	return ok, nil
}

func (s *Service) Release(ctx context.Context, slotID uuid.UUID, holder string) error {
	if err := s.repo.Release(ctx, slotID, holder); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"slot_id": slotID, "holder": holder}).Debug("slot released")
	return nil
}

func (s *Service) GetSlot(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	return s.repo.GetSlot(ctx, slotID)
}
