package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Channel hints understood by the dispatcher.
const (
	HintEmail = "EMAIL"
	HintSMS   = "SMS"
)

// NotificationEvent is produced once per appointment state change that needs
// a notice. Consumers must tolerate receiving the same event more than once.
type NotificationEvent struct {
	ID            uuid.UUID `json:"eventId"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	PatientID     uuid.UUID `json:"patientId"`
	Recipient     string    `json:"recipient"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	ChannelHint   string    `json:"channelHint"`
}

const payloadField = "payload"

func encode(ev NotificationEvent) (map[string]any, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal notification event: %w", err)
	}
	return map[string]any{payloadField: string(data)}, nil
}

func decode(values map[string]any) (NotificationEvent, error) {
	var ev NotificationEvent

	raw, ok := values[payloadField].(string)
	if !ok {
		return ev, fmt.Errorf("message has no %q field", payloadField)
	}
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return ev, fmt.Errorf("unmarshal notification event: %w", err)
	}
	return ev, nil
}
