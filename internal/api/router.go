package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Log          logrus.FieldLogger
	Env          string
	Version      string
	Dependencies []Dependency
}

func newBaseRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Env, cfg.Version, cfg.Dependencies...)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// NewSchedulingRouter serves the appointment orchestrator.
func NewSchedulingRouter(cfg RouterConfig, svc AppointmentService) http.Handler {
	r := newBaseRouter(cfg)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", bookAppointmentHandler(svc))
		r.Get("/", listAppointmentsHandler(svc))
		r.Get("/{id}", getAppointmentHandler(svc))
		r.Patch("/{id}/cancel", cancelAppointmentHandler(svc))
		r.Patch("/{id}/reschedule", rescheduleAppointmentHandler(svc))
	})

	return r
}

// NewRegistryRouter serves patients, doctors, schedules and the slot ledger.
func NewRegistryRouter(cfg RouterConfig, registry RegistryService, slots AvailabilityService) http.Handler {
	r := newBaseRouter(cfg)

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", createPatientHandler(registry))
		r.Get("/", listPatientsHandler(registry))
		r.Get("/search", searchPatientsHandler(registry))
		r.Get("/identification/{identification}", getPatientByIdentificationHandler(registry))
		r.Get("/validate/{identification}", validatePatientHandler(registry))
		r.Get("/{id}", getPatientHandler(registry))
		r.Patch("/{id}", updatePatientHandler(registry))
		r.Put("/{id}/address", updateAddressHandler(registry))
	})

	r.Route("/doctors", func(r chi.Router) {
		r.Post("/", createDoctorHandler(registry))
		r.Get("/", listDoctorsHandler(registry))
		r.Get("/search", searchDoctorsHandler(registry))
		r.Get("/{id}", getDoctorHandler(registry))
	})

	r.Post("/schedules", configureScheduleHandler(slots))
	r.Get("/availability", availabilityHandler(slots))

	r.Route("/slots/{id}", func(r chi.Router) {
		r.Get("/", getSlotHandler(slots))
		r.Patch("/reserve", reserveSlotHandler(slots))
		r.Patch("/release", releaseSlotHandler(slots))
	})

	return r
}

// NewNotificationRouter serves synchronous dispatch and notification history.
func NewNotificationRouter(cfg RouterConfig, svc NotificationService) http.Handler {
	r := newBaseRouter(cfg)

	r.Post("/notifications", sendNotificationHandler(svc))
	r.Get("/notifications", listNotificationsHandler(svc))

	return r
}

func NewGatewayRouter(cfg RouterConfig, gw *Gateway) http.Handler {
	r := newBaseRouter(cfg)

	r.Get("/api", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"services": gw.Services()})
	})
	r.Handle("/api/{service}", gw)
	r.Handle("/api/{service}/*", gw)

	return r
}
