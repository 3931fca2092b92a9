package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/appointment"
	"github.com/hackgods/medical-appointment-scheduling/internal/availability"
	"github.com/hackgods/medical-appointment-scheduling/internal/notification"
	"github.com/hackgods/medical-appointment-scheduling/internal/registry"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Appointments

type BookAppointmentRequest struct {
	PatientID string `json:"patientId" validate:"required,uuid"`
	DoctorID  string `json:"doctorId" validate:"required,uuid"`
	SlotID    string `json:"slotId" validate:"required,uuid"`
	DateTime  string `json:"dateTime" validate:"required"`
	Reason    string `json:"reason" validate:"max=500"`
}

// CreatedResponse is the body of every 201.
type CreatedResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type RescheduleAppointmentRequest struct {
	DateTime string `json:"dateTime" validate:"required"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	SlotID    uuid.UUID `json:"slotId"`
	DateTime  time.Time `json:"dateTime"`
	Reason    string    `json:"reason"`
	State     string    `json:"state"`
	Patient   struct {
		ID    uuid.UUID `json:"id"`
		Name  string    `json:"name"`
		Email string    `json:"email,omitempty"`
		Phone string    `json:"phone,omitempty"`
	} `json:"patient"`
	Doctor struct {
		ID        uuid.UUID `json:"id"`
		Name      string    `json:"name"`
		Specialty string    `json:"specialty"`
	} `json:"doctor"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:        a.ID,
		SlotID:    a.SlotID,
		DateTime:  a.DateTime,
		Reason:    a.Reason,
		State:     string(a.State),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	resp.Patient.ID = a.Patient.ID
	resp.Patient.Name = a.Patient.Name
	resp.Patient.Email = a.Patient.Email
	resp.Patient.Phone = a.Patient.Phone
	resp.Doctor.ID = a.Doctor.ID
	resp.Doctor.Name = a.Doctor.Name
	resp.Doctor.Specialty = a.Doctor.Specialty
	return resp
}

// Registry

type AddressRequest struct {
	Street string `json:"street" validate:"required,max=200"`
	Number string `json:"number" validate:"max=20"`
	City   string `json:"city" validate:"required,max=100"`
}

func (a *AddressRequest) toAddress() registry.Address {
	if a == nil {
		return registry.Address{}
	}
	return registry.Address{Street: a.Street, Number: a.Number, City: a.City}
}

type CreatePatientRequest struct {
	Identification     string          `json:"identification" validate:"max=40"`
	IdentificationType string          `json:"identificationType" validate:"required_with=Identification,omitempty,oneof=CEDULA PASSPORT cedula passport"`
	Name               string          `json:"name" validate:"required,max=200"`
	Gender             string          `json:"gender" validate:"omitempty,oneof=MALE FEMALE male female"`
	BirthDate          string          `json:"birthDate"`
	Email              string          `json:"email" validate:"omitempty,email"`
	Phone              string          `json:"phone" validate:"max=40"`
	Address            *AddressRequest `json:"address"`
}

// UpdatePatientRequest is a partial update: absent fields are left unchanged.
type UpdatePatientRequest struct {
	Email   *string         `json:"email" validate:"omitempty,email"`
	Phone   *string         `json:"phone" validate:"omitempty,max=40"`
	Address *AddressRequest `json:"address"`
	Status  *string         `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE active inactive"`
}

type AddressResponse struct {
	Street string `json:"street"`
	Number string `json:"number"`
	City   string `json:"city"`
}

type PatientResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Identification     string           `json:"identification,omitempty"`
	IdentificationType string           `json:"identificationType,omitempty"`
	Name               string           `json:"name"`
	Gender             string           `json:"gender,omitempty"`
	BirthDate          string           `json:"birthDate,omitempty"`
	Email              string           `json:"email"`
	Phone              string           `json:"phone"`
	Address            *AddressResponse `json:"address,omitempty"`
	Status             string           `json:"status"`
}

func toPatientResponse(p registry.Patient) PatientResponse {
	resp := PatientResponse{
		ID:                 p.ID,
		Identification:     p.Identification,
		IdentificationType: string(p.IdentificationType),
		Name:               p.Name,
		Gender:             string(p.Gender),
		Email:              p.Email,
		Phone:              p.Phone,
		Status:             string(p.Status),
	}
	if !p.BirthDate.IsZero() {
		resp.BirthDate = p.BirthDate.Format("2006-01-02")
	}
	if !p.Address.IsZero() {
		resp.Address = &AddressResponse{Street: p.Address.Street, Number: p.Address.Number, City: p.Address.City}
	}
	return resp
}

type PatientExistsResponse struct {
	Exists bool `json:"exists"`
}

type CreateDoctorRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	Surname   string `json:"surname" validate:"max=200"`
	Specialty string `json:"specialty" validate:"required,max=200"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Surname   string    `json:"surname,omitempty"`
	FullName  string    `json:"fullName"`
	Specialty string    `json:"specialty"`
}

func toDoctorResponse(d registry.Doctor) DoctorResponse {
	return DoctorResponse{ID: d.ID, Name: d.Name, Surname: d.Surname, FullName: d.FullName(), Specialty: d.Specialty}
}

// Schedules and slots

type ConfigureScheduleRequest struct {
	DoctorID        string `json:"doctorId" validate:"required,uuid"`
	Weekday         string `json:"weekday" validate:"required"`
	StartTime       string `json:"startTime" validate:"required"`
	EndTime         string `json:"endTime" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"gt=0"`
}

type ConfigureScheduleResponse struct {
	ScheduleID   uuid.UUID `json:"scheduleId"`
	SlotsCreated int       `json:"slotsCreated"`
	Weekday      string    `json:"weekday"`
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	ScheduleID uuid.UUID `json:"scheduleId"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	State      string    `json:"state"`
	Holder     string    `json:"holder,omitempty"`
}

func toSlotResponse(s availability.Slot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ScheduleID: s.ScheduleID,
		StartTime:  s.StartTime.String(),
		EndTime:    s.EndTime.String(),
		State:      string(s.State),
		Holder:     s.Holder,
	}
}

type SlotHolderRequest struct {
	Holder string `json:"holder" validate:"max=100"`
}

type ReserveSlotResponse struct {
	ID     uuid.UUID `json:"id"`
	State  string    `json:"state"`
	Holder string    `json:"holder,omitempty"`
}

// Notifications

type SendNotificationRequest struct {
	EventID       string `json:"eventId" validate:"omitempty,uuid"`
	AppointmentID string `json:"appointmentId" validate:"omitempty,uuid"`
	PatientID     string `json:"patientId" validate:"omitempty,uuid"`
	Recipient     string `json:"recipient" validate:"required"`
	Subject       string `json:"subject" validate:"required"`
	Body          string `json:"body" validate:"required"`
	ChannelHint   string `json:"channelHint" validate:"omitempty,oneof=EMAIL SMS email sms"`
}

type SendNotificationResponse struct {
	ID      uuid.UUID `json:"id"`
	State   string    `json:"state"`
	Message string    `json:"message"`
}

type NotificationResponse struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	PatientID     uuid.UUID `json:"patientId"`
	Recipient     string    `json:"recipient"`
	Subject       string    `json:"subject"`
	Channel       string    `json:"channel"`
	State         string    `json:"state"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toNotificationResponse(n notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		AppointmentID: n.AppointmentID,
		PatientID:     n.PatientID,
		Recipient:     n.Recipient,
		Subject:       n.Subject,
		Channel:       string(n.Channel),
		State:         string(n.State),
		CreatedAt:     n.CreatedAt,
	}
}
