package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/medical-appointment-scheduling/internal/eventbus"
)

type failingRepo struct{ Repository }

func (failingRepo) Save(context.Context, Notification) error { return errors.New("disk full") }

func newEvent(hint, recipient string) eventbus.NotificationEvent {
	return eventbus.NotificationEvent{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		PatientID:     uuid.New(),
		Recipient:     recipient,
		Subject:       "Confirmación de Cita Médica",
		Body:          "Su cita ha sido agendada.",
		ChannelHint:   hint,
	}
}

func TestSelectChannel(t *testing.T) {
	assert.Equal(t, ChannelEmail, SelectChannel("EMAIL"))
	assert.Equal(t, ChannelSMS, SelectChannel("sms"))
	assert.Equal(t, ChannelEmail, SelectChannel(""))
	assert.Equal(t, ChannelEmail, SelectChannel("PIGEON"))
}

func TestDispatchRecordsSent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryRepository()
	d := NewDispatcher(repo, DefaultSenders(logger), nil, logger)

	ev := newEvent("EMAIL", "ana@example.com")
	n, err := d.Dispatch(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, StateSent, n.State)
	assert.Equal(t, ChannelEmail, n.Channel)
	assert.Equal(t, ev.ID, n.ID)

	stored, err := repo.ListByAppointment(context.Background(), ev.AppointmentID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, StateSent, stored[0].State)
}

func TestDispatchSendFailureIsRecordedAsFailed(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryRepository()
	d := NewDispatcher(repo, DefaultSenders(logger), nil, logger)

	n, err := d.Dispatch(context.Background(), newEvent("SMS", "ana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, n.State)
	assert.Equal(t, ChannelSMS, n.Channel)

	stored, err := repo.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, StateFailed, stored[0].State)
}

func TestDispatchRecoversFromPanickingSender(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryRepository()
	senders := map[Channel]SendFunc{
		ChannelEmail: func(context.Context, Notification) error { panic("template missing") },
	}
	d := NewDispatcher(repo, senders, nil, logger)

	var n Notification
	assert.NotPanics(t, func() {
		n, _ = d.Dispatch(context.Background(), newEvent("EMAIL", "ana@example.com"))
	})
	assert.Equal(t, StateFailed, n.State)

	// no SMS sender registered
	n, err := d.Dispatch(context.Background(), newEvent("SMS", "555-123-4567"))
	require.NoError(t, err)
	assert.Equal(t, StateFailed, n.State)
}

func TestHandleEventIsIdempotentOnRedelivery(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := NewMemoryRepository()
	d := NewDispatcher(repo, DefaultSenders(logger), nil, logger)

	ev := newEvent("SMS", "+1 555 123 4567")
	require.NoError(t, d.HandleEvent(context.Background(), ev))
	require.NoError(t, d.HandleEvent(context.Background(), ev))

	stored, err := repo.ListByAppointment(context.Background(), ev.AppointmentID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, StateSent, stored[0].State)
}

func TestHandleEventReportsStorageFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := NewDispatcher(failingRepo{}, DefaultSenders(logger), nil, logger)

	ev := newEvent("EMAIL", "ana@example.com")
	assert.Error(t, d.HandleEvent(context.Background(), ev))

	// delivered, but the caller learns nothing was recorded
	n, err := d.Dispatch(context.Background(), ev)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, StateSent, n.State)
}
