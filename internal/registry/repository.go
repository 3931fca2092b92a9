package registry

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

var (
	ErrPatientNotFound   = fmt.Errorf("patient: %w", sentinel.ErrNotFound)
	ErrDoctorNotFound    = fmt.Errorf("doctor: %w", sentinel.ErrNotFound)
	ErrEmptySearch       = fmt.Errorf("search criteria is required: %w", sentinel.ErrValidation)
	ErrDuplicatePatient  = fmt.Errorf("a patient with this email or identification already exists: %w", sentinel.ErrConflict)
	ErrEmptyUpdate       = fmt.Errorf("nothing to update: %w", sentinel.ErrValidation)
	ErrInvalidRegistrant = fmt.Errorf("registry entry: %w", sentinel.ErrValidation)
)

type PatientRepository interface {
	CreatePatient(ctx context.Context, p Patient) error
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByIdentification(ctx context.Context, identification string) (*Patient, error)
	UpdatePatient(ctx context.Context, p Patient) error
	ListPatients(ctx context.Context, limit, offset int) ([]Patient, error)
	// SearchPatients matches name, email or identification, case-insensitively.
	SearchPatients(ctx context.Context, query string) ([]Patient, error)
}

type DoctorRepository interface {
	CreateDoctor(ctx context.Context, d Doctor) error
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
	// SearchDoctors matches name, surname or specialty, case-insensitively.
	SearchDoctors(ctx context.Context, query string) ([]Doctor, error)
}
