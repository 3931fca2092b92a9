package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type IdentificationType string

const (
	IdentificationCedula   IdentificationType = "CEDULA"
	IdentificationPassport IdentificationType = "PASSPORT"
)

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

type PatientStatus string

const (
	PatientActive   PatientStatus = "ACTIVE"
	PatientInactive PatientStatus = "INACTIVE"
)

type Address struct {
	Street string
	Number string
	City   string
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address the way receptionists write it: "street number, city".
func (a Address) String() string {
	if a.IsZero() {
		return ""
	}
	line := strings.TrimSpace(a.Street + " " + a.Number)
	if a.City == "" {
		return line
	}
	return line + ", " + a.City
}

type Patient struct {
	ID                 uuid.UUID
	Identification     string
	IdentificationType IdentificationType
	Name               string
	Gender             Gender
	BirthDate          time.Time // zero when unknown
	Email              string
	Phone              string
	Address            Address
	Status             PatientStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Surname   string
	Specialty string
	CreatedAt time.Time
}

// FullName is the name copied into appointment snapshots.
func (d Doctor) FullName() string {
	return strings.TrimSpace(d.Name + " " + d.Surname)
}

// NewPatient holds the fields a caller supplies when registering a patient.
type NewPatient struct {
	Identification     string
	IdentificationType IdentificationType
	Name               string
	Gender             Gender
	BirthDate          time.Time
	Email              string
	Phone              string
	Address            Address
}

// PatientUpdate changes contact data, address or status. Nil fields are kept.
type PatientUpdate struct {
	Email   *string
	Phone   *string
	Address *Address
	Status  *PatientStatus
}

func (u PatientUpdate) empty() bool {
	return u.Email == nil && u.Phone == nil && u.Address == nil && u.Status == nil
}

type NewDoctor struct {
	Name      string
	Surname   string
	Specialty string
}

func ParseIdentificationType(s string) (IdentificationType, error) {
	switch t := IdentificationType(strings.ToUpper(strings.TrimSpace(s))); t {
	case IdentificationCedula, IdentificationPassport:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown identification type %q", ErrInvalidRegistrant, s)
}

func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown gender %q", ErrInvalidRegistrant, s)
}

func ParsePatientStatus(s string) (PatientStatus, error) {
	switch st := PatientStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case PatientActive, PatientInactive:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown patient status %q", ErrInvalidRegistrant, s)
}
