package appointment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

func newConfirmed(t *testing.T) *Appointment {
	t.Helper()
	a := New(uuid.New(), uuid.New(), time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC), "Control anual",
		PatientRef{ID: uuid.New(), Name: "Ana"}, DoctorRef{ID: uuid.New(), Name: "Dr. Grey"})
	require.NoError(t, a.Confirm())
	return a
}

func TestNewDefaultsReason(t *testing.T) {
	a := New(uuid.New(), uuid.New(), time.Now(), "", PatientRef{}, DoctorRef{})
	assert.Equal(t, DefaultReason, a.Reason)
	assert.Equal(t, StatePending, a.State)
}

func TestConfirmOnlyFromPending(t *testing.T) {
	a := newConfirmed(t)
	assert.Equal(t, StateConfirmed, a.State)
	assert.ErrorIs(t, a.Confirm(), sentinel.ErrInvalidState)
}

func TestCancelAppendsReason(t *testing.T) {
	a := newConfirmed(t)

	require.NoError(t, a.Cancel("Paciente enfermo"))
	assert.Equal(t, StateCancelled, a.State)
	assert.Equal(t, "Control anual [ANULADA: Paciente enfermo]", a.Reason)
}

func TestCancelDefaultReason(t *testing.T) {
	a := newConfirmed(t)

	require.NoError(t, a.Cancel(""))
	assert.Equal(t, "Control anual [ANULADA: Sin motivo]", a.Reason)
}

func TestCancelTwiceKeepsState(t *testing.T) {
	a := newConfirmed(t)
	require.NoError(t, a.Cancel("first"))
	reason := a.Reason

	err := a.Cancel("second")
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	assert.Equal(t, StateCancelled, a.State)
	assert.Equal(t, reason, a.Reason)
}

func TestReschedule(t *testing.T) {
	a := newConfirmed(t)
	next := a.DateTime.Add(48 * time.Hour)

	require.NoError(t, a.Reschedule(next))
	assert.Equal(t, next, a.DateTime)

	require.NoError(t, a.Cancel("x"))
	err := a.Reschedule(next.Add(time.Hour))
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	assert.Equal(t, next, a.DateTime)
}
