package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

var (
	ErrAppointmentNotFound = fmt.Errorf("appointment: %w", sentinel.ErrNotFound)
	ErrConcurrentUpdate    = fmt.Errorf("appointment was modified concurrently: %w", sentinel.ErrConflict)
)

// Filter narrows List. Zero fields are ignored.
type Filter struct {
	Date      time.Time // calendar day, UTC
	PatientID uuid.UUID
}

// PendingRelease is a slot release the saga could not complete. The release
// worker retries it until the ledger confirms.
type PendingRelease struct {
	ID        int64
	SlotID    uuid.UUID
	Holder    string
	Reason    string
	Attempts  int
	LastError string
	CreatedAt time.Time
}

// EventLog is an audit record of a saga step for one appointment.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	// Update stores a's mutable fields only if the stored state still equals
	// expected, otherwise ErrConcurrentUpdate.
	Update(ctx context.Context, a *Appointment, expected State) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f Filter) ([]Appointment, error)

	// Release reconciliation
	AddPendingRelease(ctx context.Context, pr PendingRelease) error
	ListPendingReleases(ctx context.Context, limit int) ([]PendingRelease, error)
	DeletePendingRelease(ctx context.Context, id int64) error
	RecordReleaseAttempt(ctx context.Context, id int64, lastErr string) error

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
