package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Service struct {
	patients PatientRepository
	doctors  DoctorRepository
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewService(patients PatientRepository, doctors DoctorRepository, log logrus.FieldLogger) *Service {
	return &Service{
		patients: patients,
		doctors:  doctors,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) RegisterPatient(ctx context.Context, in NewPatient) (*Patient, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: patient name is required", ErrInvalidRegistrant)
	}
	identification := strings.TrimSpace(in.Identification)
	if identification != "" && in.IdentificationType == "" {
		return nil, fmt.Errorf("%w: identification type is required with an identification", ErrInvalidRegistrant)
	}

	now := s.now().UTC()
	p := Patient{
		ID:                 uuid.New(),
		Identification:     identification,
		IdentificationType: in.IdentificationType,
		Name:               name,
		Gender:             in.Gender,
		BirthDate:          in.BirthDate,
		Email:              strings.TrimSpace(in.Email),
		Phone:              strings.TrimSpace(in.Phone),
		Address:            trimAddress(in.Address),
		Status:             PatientActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if identification == "" {
		p.IdentificationType = ""
	}
	if err := s.patients.CreatePatient(ctx, p); err != nil {
		return nil, err
	}

	s.log.WithField("patient_id", p.ID).Info("patient registered")
	return &p, nil
}

// UpdatePatient changes a patient's contact data, address or status.
// Appointments keep the snapshot taken at booking time.
func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, u PatientUpdate) (*Patient, error) {
	if u.empty() {
		return nil, ErrEmptyUpdate
	}

	p, err := s.patients.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Email != nil {
		p.Email = strings.TrimSpace(*u.Email)
	}
	if u.Phone != nil {
		p.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Address != nil {
		p.Address = trimAddress(*u.Address)
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.patients.UpdatePatient(ctx, *p); err != nil {
		return nil, err
	}

	s.log.WithField("patient_id", p.ID).Info("patient updated")
	return p, nil
}

// FindPatientByIdentification looks a patient up by national id or passport number.
func (s *Service) FindPatientByIdentification(ctx context.Context, identification string) (*Patient, error) {
	identification = strings.TrimSpace(identification)
	if identification == "" {
		return nil, ErrEmptySearch
	}
	return s.patients.GetPatientByIdentification(ctx, identification)
}

func trimAddress(a Address) Address {
	return Address{
		Street: strings.TrimSpace(a.Street),
		Number: strings.TrimSpace(a.Number),
		City:   strings.TrimSpace(a.City),
	}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetPatient(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]Patient, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	patients, err := s.patients.ListPatients(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) SearchPatients(ctx context.Context, query string) ([]Patient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptySearch
	}
	patients, err := s.patients.SearchPatients(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search patients: %w", err)
	}
	return patients, nil
}

func (s *Service) RegisterDoctor(ctx context.Context, in NewDoctor) (*Doctor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: doctor name is required", ErrInvalidRegistrant)
	}

	d := Doctor{
		ID:        uuid.New(),
		Name:      name,
		Surname:   strings.TrimSpace(in.Surname),
		Specialty: strings.TrimSpace(in.Specialty),
		CreatedAt: s.now().UTC(),
	}
	if err := s.doctors.CreateDoctor(ctx, d); err != nil {
		return nil, err
	}

	s.log.WithField("doctor_id", d.ID).Info("doctor registered")
	return &d, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetDoctor(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	doctors, err := s.doctors.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) SearchDoctors(ctx context.Context, query string) ([]Doctor, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptySearch
	}
	doctors, err := s.doctors.SearchDoctors(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search doctors: %w", err)
	}
	return doctors, nil
}

// DoctorExists lets the availability service check a doctor without loading it.
func (s *Service) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.doctors.GetDoctor(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrDoctorNotFound):
		return false, nil
	default:
		return false, err
	}
}
