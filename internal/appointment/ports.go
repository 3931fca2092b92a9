package appointment

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/eventbus"
)

// Collaborators of the booking saga. Implementations return errors wrapping
// sentinel.ErrNotFound for missing records and sentinel.ErrUnavailable when
// the remote service cannot be reached.

type PatientDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (PatientRef, error)
}

type DoctorDirectory interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (DoctorRef, error)
}

type SlotLedger interface {
	// Reserve reports false when the slot is missing or already reserved.
	Reserve(ctx context.Context, slotID uuid.UUID, holder string) (bool, error)
	// Release succeeds when the slot is already available and fails with a
	// conflict when someone else holds it.
	Release(ctx context.Context, slotID uuid.UUID, holder string) error
	// SlotHolder returns the current holder, empty when the slot is available.
	SlotHolder(ctx context.Context, slotID uuid.UUID) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev eventbus.NotificationEvent) error
}
