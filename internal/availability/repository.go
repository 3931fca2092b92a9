package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

var (
	ErrInvalidSchedule         = fmt.Errorf("schedule: %w", sentinel.ErrValidation)
	ErrSlotNotFound            = fmt.Errorf("slot: %w", sentinel.ErrNotFound)
	ErrScheduleNotFound        = fmt.Errorf("schedule: %w", sentinel.ErrNotFound)
	ErrDoctorNotFound          = fmt.Errorf("doctor: %w", sentinel.ErrNotFound)
	ErrSlotHeldByOther         = fmt.Errorf("slot is reserved by another holder: %w", sentinel.ErrConflict)
	ErrScheduleHasReservations = fmt.Errorf("schedule has reserved slots and cannot be regenerated: %w", sentinel.ErrConflict)
	ErrScheduleBusy            = fmt.Errorf("schedule is being configured, retry shortly: %w", sentinel.ErrConflict)
	ErrHolderRequired          = fmt.Errorf("slot holder is required: %w", sentinel.ErrValidation)
)

// Ledger is the slot state machine. ReserveIfAvailable is the single
// serialization point for bookings: of two concurrent callers on the same
// AVAILABLE slot exactly one gets true. Missing or reserved slots yield false,
// never an error.
type Ledger interface {
	ReserveIfAvailable(ctx context.Context, slotID uuid.UUID, holder string) (bool, error)
	// Release returns a slot held by holder to AVAILABLE. Releasing an already
	// available slot succeeds; a slot held by someone else is left untouched
	// and reported with ErrSlotHeldByOther.
	Release(ctx context.Context, slotID uuid.UUID, holder string) error
	GetSlot(ctx context.Context, slotID uuid.UUID) (*Slot, error)
}

// Repository stores schedules and their slots.
type Repository interface {
	Ledger

	GetSchedule(ctx context.Context, doctorID uuid.UUID, weekday Weekday) (*Schedule, error)

	// ReplaceSchedule atomically drops the slots of the doctor's existing
	// schedule for the weekday (if any) and stores the new one. It fails with
	// ErrScheduleHasReservations when any old slot is RESERVED.
	ReplaceSchedule(ctx context.Context, schedule Schedule, slots []Slot) error

	ListSlots(ctx context.Context, doctorID uuid.UUID, weekday Weekday) ([]Slot, error)
}
