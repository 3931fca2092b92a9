package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/appointment"
)

type AppointmentService interface {
	BookAppointment(ctx context.Context, req appointment.BookingRequest) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, dateTime time.Time) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListAppointments(ctx context.Context, f appointment.Filter) ([]appointment.Appointment, error)
}

var appointmentErrorCodes = []errorCode{
	{appointment.ErrPatientNotFound, "patient_not_found"},
	{appointment.ErrDoctorNotFound, "doctor_not_found"},
	{appointment.ErrSlotUnavailable, "slot_unavailable"},
	{appointment.ErrAppointmentNotFound, "appointment_not_found"},
	{appointment.ErrConcurrentUpdate, "concurrent_update"},
	{appointment.ErrAlreadyCancelled, "already_cancelled"},
	{appointment.ErrInvalidTransition, "invalid_transition"},
}

func bookAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		dateTime, ok := parseDateTime(req.DateTime)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date_time", "dateTime must be RFC 3339 or YYYY-MM-DD HH:MM")
			return
		}

		appt, err := svc.BookAppointment(r.Context(), appointment.BookingRequest{
			PatientID: uuid.MustParse(req.PatientID),
			DoctorID:  uuid.MustParse(req.DoctorID),
			SlotID:    uuid.MustParse(req.SlotID),
			DateTime:  dateTime,
			Reason:    req.Reason,
		})
		if err != nil {
			handleError(w, r, err, appointmentErrorCodes...)
			return
		}

		writeJSON(w, http.StatusCreated, CreatedResponse{
			ID:      appt.ID,
			Message: "appointment booked",
		})
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_appointment_id")
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleError(w, r, err, appointmentErrorCodes...)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f appointment.Filter

		if raw := r.URL.Query().Get("date"); raw != "" {
			date, ok := parseDate(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			f.Date = date
		}
		if raw := r.URL.Query().Get("patientId"); raw != "" {
			id, ok := pathUUID(w, raw, "invalid_patient_id")
			if !ok {
				return
			}
			f.PatientID = id
		}

		appts, err := svc.ListAppointments(r.Context(), f)
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_appointment_id")
		if !ok {
			return
		}

		// the body is optional
		var req CancelAppointmentRequest
		if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
			return
		}

		if _, err := svc.CancelAppointment(r.Context(), id, strings.TrimSpace(req.Reason)); err != nil {
			handleError(w, r, err, appointmentErrorCodes...)
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{Message: "appointment cancelled"})
	}
}

func rescheduleAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_appointment_id")
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		dateTime, ok := parseDateTime(req.DateTime)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date_time", "dateTime must be RFC 3339 or YYYY-MM-DD HH:MM")
			return
		}

		appt, err := svc.Reschedule(r.Context(), id, dateTime)
		if err != nil {
			handleError(w, r, err, appointmentErrorCodes...)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
