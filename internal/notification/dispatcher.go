package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/medical-appointment-scheduling/internal/eventbus"
	"github.com/hackgods/medical-appointment-scheduling/internal/metrics"
)

// Dispatcher turns notification events into delivered (or failed)
// notification records.
type Dispatcher struct {
	repo    Repository
	senders map[Channel]SendFunc
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewDispatcher(repo Repository, senders map[Channel]SendFunc, m *metrics.Metrics, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		repo:    repo,
		senders: senders,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// HandleEvent is the stream handler. It only fails when the record could not
// be stored, so the event is delivered again.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev eventbus.NotificationEvent) error {
	_, err := d.Dispatch(ctx, ev)
	return err
}

// Dispatch sends the event over its channel and records the outcome. Send
// failures are recorded as FAILED and never returned; the error reports a
// notification that was attempted but could not be stored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev eventbus.NotificationEvent) (Notification, error) {
	// redelivered events map onto the same record
	id := ev.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	n := Notification{
		ID:            id,
		AppointmentID: ev.AppointmentID,
		PatientID:     ev.PatientID,
		Recipient:     ev.Recipient,
		Subject:       ev.Subject,
		Body:          ev.Body,
		Channel:       SelectChannel(ev.ChannelHint),
		State:         StatePending,
		CreatedAt:     d.now().UTC(),
	}

	log := d.log.WithFields(logrus.Fields{
		"notification_id": n.ID,
		"appointment_id":  n.AppointmentID,
		"channel":         n.Channel,
	})

	if err := d.send(ctx, n); err != nil {
		log.WithError(err).Warn("notification delivery failed")
		n.State = StateFailed
	} else {
		n.State = StateSent
	}
	d.metrics.IncrementNotification(string(n.Channel), string(n.State))

	if err := d.repo.Save(ctx, n); err != nil {
		log.WithError(err).Error("failed to record notification")
		return n, fmt.Errorf("record notification %s: %w", n.ID, err)
	}
	return n, nil
}

func (d *Dispatcher) send(ctx context.Context, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
	}()

	sender, ok := d.senders[n.Channel]
	if !ok {
		return fmt.Errorf("no sender for channel %s", n.Channel)
	}
	return sender(ctx, n)
}

func (d *Dispatcher) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Notification, error) {
	return d.repo.ListByAppointment(ctx, appointmentID)
}

func (d *Dispatcher) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return d.repo.ListRecent(ctx, limit)
}
