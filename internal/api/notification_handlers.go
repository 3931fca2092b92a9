package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/medical-appointment-scheduling/internal/eventbus"
	"github.com/hackgods/medical-appointment-scheduling/internal/notification"
)

type NotificationService interface {
	Dispatch(ctx context.Context, ev eventbus.NotificationEvent) (notification.Notification, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]notification.Notification, error)
	ListRecent(ctx context.Context, limit int) ([]notification.Notification, error)
}

// sendNotificationHandler dispatches synchronously. The send outcome is part
// of the 200 body: a FAILED notification is still a handled request. A
// notification that could not be recorded is a 500, whatever its outcome.
func sendNotificationHandler(svc NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendNotificationRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		ev := eventbus.NotificationEvent{
			ID:            optionalUUID(req.EventID),
			AppointmentID: optionalUUID(req.AppointmentID),
			PatientID:     optionalUUID(req.PatientID),
			Recipient:     req.Recipient,
			Subject:       req.Subject,
			Body:          req.Body,
			ChannelHint:   req.ChannelHint,
		}

		n, err := svc.Dispatch(r.Context(), ev)
		if err != nil {
			requestLogger(r.Context()).WithError(err).Error("notification not recorded")
			writeError(w, http.StatusInternalServerError, "notification_not_recorded",
				fmt.Sprintf("notification %s was %s but could not be recorded", n.ID, strings.ToLower(string(n.State))))
			return
		}

		writeJSON(w, http.StatusOK, SendNotificationResponse{
			ID:      n.ID,
			State:   string(n.State),
			Message: fmt.Sprintf("notification processed by %s", n.Channel),
		})
	}
}

func listNotificationsHandler(svc NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			items []notification.Notification
			err   error
		)

		if raw := r.URL.Query().Get("appointmentId"); raw != "" {
			id, ok := pathUUID(w, raw, "invalid_appointment_id")
			if !ok {
				return
			}
			items, err = svc.ListByAppointment(r.Context(), id)
		} else {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			items, err = svc.ListRecent(r.Context(), limit)
		}
		if err != nil {
			handleError(w, r, err)
			return
		}

		resp := make([]NotificationResponse, 0, len(items))
		for _, n := range items {
			resp = append(resp, toNotificationResponse(n))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// optionalUUID parses a value already checked by the uuid validator.
func optionalUUID(s string) uuid.UUID {
	if s == "" {
		return uuid.Nil
	}
	return uuid.MustParse(s)
}
