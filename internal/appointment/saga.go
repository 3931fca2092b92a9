package appointment

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
)

type SagaState string

const (
	SagaStart        SagaState = "START"
	SagaPatientOK    SagaState = "PATIENT_OK"
	SagaDoctorOK     SagaState = "DOCTOR_OK"
	SagaSlotReserved SagaState = "SLOT_RESERVED"
	SagaPersisted    SagaState = "PERSISTED"
	SagaSlotReleased SagaState = "SLOT_RELEASED"
	SagaNotified     SagaState = "NOTIFIED"
	SagaDone         SagaState = "DONE"
	SagaFailed       SagaState = "FAILED"
)

const (
	sagaBook       = "book"
	sagaCancel     = "cancel"
	sagaReschedule = "reschedule"
)

// transitions lists the legal edges. Booking runs
// START, PATIENT_OK, DOCTOR_OK, SLOT_RESERVED, PERSISTED, NOTIFIED, DONE and
// once a slot is reserved every failure passes through SLOT_RELEASED.
// Cancellation runs START, PERSISTED, SLOT_RELEASED, NOTIFIED, DONE.
var transitions = map[SagaState][]SagaState{
	SagaStart:        {SagaPatientOK, SagaPersisted, SagaFailed},
	SagaPatientOK:    {SagaDoctorOK, SagaFailed},
	SagaDoctorOK:     {SagaSlotReserved, SagaFailed},
	SagaSlotReserved: {SagaPersisted, SagaSlotReleased},
	SagaPersisted:    {SagaNotified, SagaSlotReleased, SagaDone},
	SagaSlotReleased: {SagaNotified, SagaFailed, SagaDone},
	SagaNotified:     {SagaDone},
}

func canTransition(from, to SagaState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// saga tracks one execution for logging and metrics.
type saga struct {
	kind     string
	state    SagaState
	path     []SagaState
	started  time.Time
	lastStep time.Time
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func newSaga(kind string, m *metrics.Metrics, log logrus.FieldLogger) *saga {
	now := time.Now()
	return &saga{
		kind:     kind,
		state:    SagaStart,
		path:     []SagaState{SagaStart},
		started:  now,
		lastStep: now,
		metrics:  m,
		log:      log.WithField("saga", kind),
	}
}

func (s *saga) advance(next SagaState) {
	if !canTransition(s.state, next) {
		s.log.WithFields(logrus.Fields{"from": s.state, "to": next}).Error("illegal saga transition")
	}

	now := time.Now()
	s.metrics.ObserveSagaStep(string(next), now.Sub(s.lastStep))
	s.lastStep = now

	s.state = next
	s.path = append(s.path, next)
	s.log.WithField("saga_state", next).Debug("saga advanced")
}

// fail ends the saga in FAILED and returns err unchanged.
func (s *saga) fail(err error) error {
	if s.state != SagaFailed {
		s.advance(SagaFailed)
	}
	s.finish(err)
	return err
}

func (s *saga) done() {
	s.advance(SagaDone)
	s.finish(nil)
}

func (s *saga) finish(err error) {
	s.metrics.IncrementSagaOutcome(s.kind, string(s.state))

	entry := s.log.WithFields(logrus.Fields{
		"saga_state": s.state,
		"saga_path":  s.pathString(),
		"duration":   time.Since(s.started).String(),
	})
	if err != nil {
		entry.WithError(err).Warn("saga failed")
		return
	}
	entry.Info("saga finished")
}

func (s *saga) pathString() string {
	parts := make([]string, len(s.path))
	for i, st := range s.path {
		parts[i] = string(st)
	}
	return strings.Join(parts, ">")
}
