package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/medical-appointment-scheduling/internal/config"
	"github.com/hackgods/medical-appointment-scheduling/internal/eventbus"
	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventSlotReleaseDeferred    = "SLOT_RELEASE_DEFERRED"
)

const dateTimeLayout = "2006-01-02 15:04"

var (
	ErrPatientNotFound = fmt.Errorf("patient: %w", sentinel.ErrNotFound)
	ErrDoctorNotFound  = fmt.Errorf("doctor: %w", sentinel.ErrNotFound)
	ErrSlotUnavailable = fmt.Errorf("slot is not available: %w", sentinel.ErrConflict)
	ErrInvalidBooking  = fmt.Errorf("booking request: %w", sentinel.ErrValidation)
)

type BookingRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	SlotID    uuid.UUID
	DateTime  time.Time
	Reason    string
}

func (r BookingRequest) validate() error {
	switch {
	case r.PatientID == uuid.Nil:
		return fmt.Errorf("%w: patient id is required", ErrInvalidBooking)
	case r.DoctorID == uuid.Nil:
		return fmt.Errorf("%w: doctor id is required", ErrInvalidBooking)
	case r.SlotID == uuid.Nil:
		return fmt.Errorf("%w: slot id is required", ErrInvalidBooking)
	case r.DateTime.IsZero():
		return fmt.Errorf("%w: date time is required", ErrInvalidBooking)
	}
	return nil
}

type Deps struct {
	Repo      Repository
	Patients  PatientDirectory
	Doctors   DoctorDirectory
	Ledger    SlotLedger
	Publisher Publisher
	Metrics   *metrics.Metrics
	Log       logrus.FieldLogger
}

// Service is the scheduling orchestrator. Each booking runs as a saga over
// the patient registry, the doctor registry and the slot ledger, without a
// distributed transaction: once a slot is reserved any later failure releases
// it again.
type Service struct {
	repo      Repository
	patients  PatientDirectory
	doctors   DoctorDirectory
	ledger    SlotLedger
	publisher Publisher
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
	cfg       config.Config
	newID     func() uuid.UUID
}

func NewService(deps Deps, cfg config.Config) *Service {
	return &Service{
		repo:      deps.Repo,
		patients:  deps.Patients,
		doctors:   deps.Doctors,
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		log:       deps.Log,
		cfg:       cfg,
		newID:     uuid.New,
	}
}

// BookAppointment resolves the patient and doctor, reserves the slot, stores a
// confirmed appointment and announces it. Notification failures never fail
// the booking.
func (s *Service) BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	id := s.newID()
	holder := id.String()
	sg := newSaga(sagaBook, s.metrics, s.log.WithFields(logrus.Fields{
		"appointment_id": id,
		"slot_id":        req.SlotID,
	}))

	// 1. patient
	patient, err := s.resolvePatient(ctx, req.PatientID)
	if err != nil {
		return nil, sg.fail(err)
	}
	sg.advance(SagaPatientOK)

	// 2. doctor
	doctor, err := s.resolveDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, sg.fail(err)
	}
	sg.advance(SagaDoctorOK)

	// 3. slot
	reserved, err := s.reserve(ctx, req.SlotID, holder)
	if err != nil {
		return nil, sg.fail(err)
	}
	if !reserved {
		return nil, sg.fail(ErrSlotUnavailable)
	}
	sg.advance(SagaSlotReserved)

	// 4. create and confirm
	appt := New(id, req.SlotID, req.DateTime.UTC(), req.Reason, patient, doctor)
	if err := appt.Confirm(); err != nil {
		s.compensate(ctx, sg, req.SlotID, holder, "confirm failed")
		return nil, sg.fail(err)
	}

	// 5. persist
	if err := s.repo.Create(ctx, appt); err != nil {
		s.compensate(ctx, sg, req.SlotID, holder, "persist failed")
		return nil, sg.fail(fmt.Errorf("persist appointment: %w", err))
	}
	sg.advance(SagaPersisted)

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"slot_id":    appt.SlotID.String(),
		"patient_id": appt.Patient.ID.String(),
		"doctor_id":  appt.Doctor.ID.String(),
		"date_time":  appt.DateTime,
	})

	// 6. notify, best effort
	if s.publish(ctx, confirmationEvent(appt)) {
		sg.advance(SagaNotified)
	}
	sg.done()

	return appt, nil
}

// CancelAppointment cancels a booked appointment, frees its slot and
// announces the cancellation.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	sg := newSaga(sagaCancel, s.metrics, s.log.WithField("appointment_id", id))

	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, sg.fail(err)
	}

	previous := appt.State
	if err := appt.Cancel(reason); err != nil {
		return nil, sg.fail(err)
	}
	if err := s.repo.Update(ctx, appt, previous); err != nil {
		return nil, sg.fail(err)
	}
	sg.advance(SagaPersisted)

	s.compensate(ctx, sg, appt.SlotID, appt.ID.String(), "appointment cancelled")

	s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
		"slot_id": appt.SlotID.String(),
		"reason":  appt.Reason,
	})

	if s.publish(ctx, cancellationEvent(appt, reason)) {
		sg.advance(SagaNotified)
	}
	sg.done()

	return appt, nil
}

// Reschedule moves the appointment to a new date and time. The reserved slot
// is kept.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, dateTime time.Time) (*Appointment, error) {
	if dateTime.IsZero() {
		return nil, fmt.Errorf("%w: date time is required", ErrInvalidBooking)
	}

	sg := newSaga(sagaReschedule, s.metrics, s.log.WithField("appointment_id", id))

	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, sg.fail(err)
	}

	previous := appt.State
	if err := appt.Reschedule(dateTime.UTC()); err != nil {
		return nil, sg.fail(err)
	}
	if err := s.repo.Update(ctx, appt, previous); err != nil {
		return nil, sg.fail(err)
	}
	sg.advance(SagaPersisted)

	s.logEvent(ctx, appt.ID, EventAppointmentRescheduled, map[string]any{
		"date_time": appt.DateTime,
	})

	if s.publish(ctx, rescheduleEvent(appt)) {
		sg.advance(SagaNotified)
	}
	sg.done()

	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	appointments, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appointments, nil
}

// ReconcilePendingReleases retries releases the sagas could not complete and
// returns how many were resolved. It is called periodically by the release
// worker.
func (s *Service) ReconcilePendingReleases(ctx context.Context, limit int) (int, error) {
	pending, err := s.repo.ListPendingReleases(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending releases: %w", err)
	}

	resolved := 0
	for _, pr := range pending {
		log := s.log.WithFields(logrus.Fields{
			"slot_id":  pr.SlotID,
			"holder":   pr.Holder,
			"attempts": pr.Attempts,
		})

		rctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
		err := s.ledger.Release(rctx, pr.SlotID, pr.Holder)
		cancel()

		switch {
		case err == nil, errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrNotFound):
			if delErr := s.repo.DeletePendingRelease(ctx, pr.ID); delErr != nil {
				log.WithError(delErr).Error("failed to delete pending release")
				continue
			}
			resolved++
			s.metrics.IncrementReconciled("resolved")
			log.Info("pending release resolved")
		default:
			if recErr := s.repo.RecordReleaseAttempt(ctx, pr.ID, err.Error()); recErr != nil {
				log.WithError(recErr).Error("failed to record release attempt")
			}
			s.metrics.IncrementReconciled("retry")
			log.WithError(err).Warn("pending release still failing")
		}
	}

	return resolved, nil
}

func (s *Service) resolvePatient(ctx context.Context, id uuid.UUID) (PatientRef, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	p, err := s.patients.GetPatient(cctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return PatientRef{}, ErrPatientNotFound
		}
		return PatientRef{}, fmt.Errorf("resolve patient: %w", err)
	}
	return p, nil
}

func (s *Service) resolveDoctor(ctx context.Context, id uuid.UUID) (DoctorRef, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	d, err := s.doctors.GetDoctor(cctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return DoctorRef{}, ErrDoctorNotFound
		}
		return DoctorRef{}, fmt.Errorf("resolve doctor: %w", err)
	}
	return d, nil
}

// reserve asks the ledger for the slot. When the call fails in a way that
// leaves the outcome unknown, the ledger is asked who holds the slot instead
// of retrying the reservation.
func (s *Service) reserve(ctx context.Context, slotID uuid.UUID, holder string) (bool, error) {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	ok, err := s.ledger.Reserve(rctx, slotID, holder)
	cancel()

	if err == nil {
		s.metrics.IncrementReservation(reservationResult(ok))
		return ok, nil
	}
	if !errors.Is(err, sentinel.ErrUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
		return false, fmt.Errorf("reserve slot: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{"slot_id": slotID, "holder": holder})
	log.WithError(err).Warn("reservation outcome unknown, checking slot status")

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.UpstreamTimeout)
	defer cancel()

	current, checkErr := s.ledger.SlotHolder(sctx, slotID)
	switch {
	case checkErr != nil:
		// the reservation may still have committed
		s.deferRelease(ctx, slotID, holder, "reservation outcome unknown", checkErr)
		return false, fmt.Errorf("reserve slot: %w", err)
	case current == holder:
		log.Info("reservation had committed")
		s.metrics.IncrementReservation("reserved")
		return true, nil
	case current != "":
		s.metrics.IncrementReservation("unavailable")
		return false, nil
	default:
		// still AVAILABLE, but the request may yet commit at the ledger
		s.deferRelease(ctx, slotID, holder, "reservation outcome unknown", err)
		return false, fmt.Errorf("reserve slot: %w", err)
	}
}

func reservationResult(ok bool) string {
	if ok {
		return "reserved"
	}
	return "unavailable"
}

// compensate releases a slot reserved by holder. A release that cannot be
// completed now is stored for the release worker, so the saga always leaves
// through SLOT_RELEASED.
func (s *Service) compensate(ctx context.Context, sg *saga, slotID uuid.UUID, holder, reason string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.UpstreamTimeout)
	defer cancel()

	log := s.log.WithFields(logrus.Fields{"slot_id": slotID, "holder": holder, "reason": reason})

	err := s.ledger.Release(rctx, slotID, holder)
	switch {
	case err == nil:
		s.metrics.IncrementCompensation("released")
		log.Info("slot released")
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementCompensation("skipped")
		log.WithError(err).Warn("slot not held by this appointment, nothing to release")
	default:
		s.deferRelease(ctx, slotID, holder, reason, err)
	}
	sg.advance(SagaSlotReleased)
}

func (s *Service) deferRelease(ctx context.Context, slotID uuid.UUID, holder, reason string, cause error) {
	ctx = context.WithoutCancel(ctx)
	log := s.log.WithFields(logrus.Fields{"slot_id": slotID, "holder": holder})

	pr := PendingRelease{
		SlotID:    slotID,
		Holder:    holder,
		Reason:    reason,
		LastError: cause.Error(),
	}
	if err := s.repo.AddPendingRelease(ctx, pr); err != nil {
		log.WithError(err).Error("failed to store pending release, slot may stay reserved")
		return
	}
	s.metrics.IncrementCompensation("deferred")
	log.WithError(cause).Warn("slot release deferred to release worker")

	if id, err := uuid.Parse(holder); err == nil {
		s.logEvent(ctx, id, EventSlotReleaseDeferred, map[string]any{
			"slot_id": slotID.String(),
			"reason":  reason,
		})
	}
}

func (s *Service) publish(ctx context.Context, ev eventbus.NotificationEvent) bool {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pctx, ev); err != nil {
		s.metrics.IncrementPublishFailure()
		s.log.WithError(err).WithField("appointment_id", ev.AppointmentID).Warn("failed to publish notification event")
		return false
	}
	return true
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.WithError(err).Warnf("failed to marshal event payload for %s", eventType)
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.InsertEvent(context.WithoutCancel(ctx), ev); err != nil {
		s.log.WithError(err).Warnf("failed to insert event log %s for appointment %s", eventType, appointmentID)
	}
}

func contactFor(p PatientRef) (hint, recipient string) {
	if p.Email == "" && p.Phone != "" {
		return eventbus.HintSMS, p.Phone
	}
	return eventbus.HintEmail, p.Email
}

func newEvent(a *Appointment, subject, body string) eventbus.NotificationEvent {
	hint, recipient := contactFor(a.Patient)
	return eventbus.NotificationEvent{
		ID:            uuid.New(),
		AppointmentID: a.ID,
		PatientID:     a.Patient.ID,
		Recipient:     recipient,
		Subject:       subject,
		Body:          body,
		ChannelHint:   hint,
	}
}

func confirmationEvent(a *Appointment) eventbus.NotificationEvent {
	return newEvent(a, "Confirmación de Cita Médica",
		fmt.Sprintf("Su cita con el Dr. %s ha sido agendada para el %s.", a.Doctor.Name, a.DateTime.Format(dateTimeLayout)))
}

func cancellationEvent(a *Appointment, reason string) eventbus.NotificationEvent {
	if reason == "" {
		reason = DefaultCancelReason
	}
	return newEvent(a, "Anulación de Cita Médica",
		fmt.Sprintf("Su cita con el Dr. %s del %s ha sido anulada. Motivo: %s.", a.Doctor.Name, a.DateTime.Format(dateTimeLayout), reason))
}

func rescheduleEvent(a *Appointment) eventbus.NotificationEvent {
	return newEvent(a, "Reprogramación de Cita Médica",
		fmt.Sprintf("Su cita con el Dr. %s ha sido movida al %s.", a.Doctor.Name, a.DateTime.Format(dateTimeLayout)))
}
