package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

type State string

const (
	StatePending   State = "PENDING"
	StateConfirmed State = "CONFIRMED"
	StateCancelled State = "CANCELLED"
	StateCompleted State = "COMPLETED"
)

const (
	DefaultReason       = "Consulta General"
	DefaultCancelReason = "Sin motivo"
)

var (
	ErrInvalidTransition = fmt.Errorf("invalid state transition: %w", sentinel.ErrInvalidState)
	ErrAlreadyCancelled  = fmt.Errorf("appointment is already cancelled: %w", sentinel.ErrInvalidState)
)

// PatientRef is a copy of the patient taken at booking time. Later edits to
// the patient record do not reach existing appointments.
type PatientRef struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

type DoctorRef struct {
	ID        uuid.UUID
	Name      string
	Specialty string
}

type Appointment struct {
	ID        uuid.UUID
	SlotID    uuid.UUID
	DateTime  time.Time
	Reason    string
	Patient   PatientRef
	Doctor    DoctorRef
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a PENDING appointment. id must be fresh; it is also used as the
// holder of the slot reservation.
func New(id, slotID uuid.UUID, dateTime time.Time, reason string, patient PatientRef, doctor DoctorRef) *Appointment {
	if reason == "" {
		reason = DefaultReason
	}
	return &Appointment{
		ID:       id,
		SlotID:   slotID,
		DateTime: dateTime,
		Reason:   reason,
		Patient:  patient,
		Doctor:   doctor,
		State:    StatePending,
	}
}

func (a *Appointment) Confirm() error {
	if a.State != StatePending {
		return fmt.Errorf("%w: cannot confirm %s appointment", ErrInvalidTransition, a.State)
	}
	a.State = StateConfirmed
	return nil
}

// Cancel moves the appointment to CANCELLED and annotates the reason. A
// cancelled appointment is left untouched.
func (a *Appointment) Cancel(reason string) error {
	if a.State == StateCancelled {
		return ErrAlreadyCancelled
	}
	if reason == "" {
		reason = DefaultCancelReason
	}
	a.State = StateCancelled
	a.Reason = fmt.Sprintf("%s [ANULADA: %s]", a.Reason, reason)
	return nil
}

func (a *Appointment) Reschedule(dateTime time.Time) error {
	if a.State == StateCancelled {
		return fmt.Errorf("%w: cannot reschedule a cancelled appointment", ErrInvalidTransition)
	}
	a.DateTime = dateTime
	return nil
}
