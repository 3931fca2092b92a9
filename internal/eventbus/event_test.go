package eventbus

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	ev := NotificationEvent{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		PatientID:     uuid.New(),
		Recipient:     "ana@example.com",
		Subject:       "Confirmación de Cita Médica",
		Body:          "body",
		ChannelHint:   HintEmail,
	}

	values, err := encode(ev)
	require.NoError(t, err)
	assert.Contains(t, values[payloadField], `"channelHint":"EMAIL"`)

	got, err := decode(values)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestDecodeRejectsMalformedMessages(t *testing.T) {
	_, err := decode(map[string]any{"other": "x"})
	assert.Error(t, err)

	_, err = decode(map[string]any{payloadField: "{not json"})
	assert.Error(t, err)
}
