package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/availability"
)

type AvailabilityService interface {
	ConfigureSchedule(ctx context.Context, cfg availability.ScheduleConfig) (*availability.Schedule, []availability.Slot, error)
	Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]availability.Slot, error)
	Reserve(ctx context.Context, slotID uuid.UUID, holder string) (bool, error)
	Release(ctx context.Context, slotID uuid.UUID, holder string) error
	GetSlot(ctx context.Context, slotID uuid.UUID) (*availability.Slot, error)
}

var availabilityErrorCodes = []errorCode{
	{availability.ErrDoctorNotFound, "doctor_not_found"},
	{availability.ErrSlotNotFound, "slot_not_found"},
	{availability.ErrSlotHeldByOther, "slot_held_by_other"},
	{availability.ErrScheduleHasReservations, "schedule_has_reservations"},
	{availability.ErrScheduleBusy, "schedule_busy"},
	{availability.ErrInvalidSchedule, "invalid_schedule"},
}

func configureScheduleHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConfigureScheduleRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		weekday, err := availability.ParseWeekday(req.Weekday)
		if err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}
		start, err := availability.ParseClock(req.StartTime)
		if err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}
		end, err := availability.ParseClock(req.EndTime)
		if err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}

		schedule, slots, err := svc.ConfigureSchedule(r.Context(), availability.ScheduleConfig{
			DoctorID:        uuid.MustParse(req.DoctorID),
			Weekday:         weekday,
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}

		writeJSON(w, http.StatusCreated, ConfigureScheduleResponse{
			ScheduleID:   schedule.ID,
			SlotsCreated: len(slots),
			Weekday:      string(weekday),
		})
	}
}

func availabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("doctorId") == "" || q.Get("date") == "" {
			writeError(w, http.StatusBadRequest, "missing_parameters", "doctorId and date are required")
			return
		}

		doctorID, ok := pathUUID(w, q.Get("doctorId"), "invalid_doctor_id")
		if !ok {
			return
		}
		date, ok := parseDate(q.Get("date"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.Availability(r.Context(), doctorID, date)
		if err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			resp = append(resp, toSlotResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getSlotHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_slot_id")
		if !ok {
			return
		}

		slot, err := svc.GetSlot(r.Context(), id)
		if err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

// reserveSlotHandler answers 200 when the slot was taken for the holder and
// 409 when it is not available. Callers that send no holder get a generated
// one back, which they need to release the slot later.
func reserveSlotHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_slot_id")
		if !ok {
			return
		}

		var req SlotHolderRequest
		if r.ContentLength != 0 && !decodeAndValidate(w, r, &req) {
			return
		}
		holder := strings.TrimSpace(req.Holder)
		if holder == "" {
			holder = uuid.NewString()
		}

		reserved, err := svc.Reserve(r.Context(), id, holder)
		if err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}
		if !reserved {
			if _, err := svc.GetSlot(r.Context(), id); errors.Is(err, availability.ErrSlotNotFound) {
				handleError(w, r, err, availabilityErrorCodes...)
				return
			}
			writeError(w, http.StatusConflict, "slot_unavailable", "slot is not available")
			return
		}

		writeJSON(w, http.StatusOK, ReserveSlotResponse{
			ID:     id,
			State:  string(availability.SlotReserved),
			Holder: holder,
		})
	}
}

func releaseSlotHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, chi.URLParam(r, "id"), "invalid_slot_id")
		if !ok {
			return
		}

		var req SlotHolderRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Holder) == "" {
			handleError(w, r, availability.ErrHolderRequired)
			return
		}

		if err := svc.Release(r.Context(), id, strings.TrimSpace(req.Holder)); err != nil {
			handleError(w, r, err, availabilityErrorCodes...)
			return
		}

		writeJSON(w, http.StatusOK, ReserveSlotResponse{
			ID:    id,
			State: string(availability.SlotAvailable),
		})
	}
}
