package notification

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Channel is the closed set of delivery channels.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

// SelectChannel maps an event's hint to a channel. Unknown or empty hints
// fall back to email.
func SelectChannel(hint string) Channel {
	switch Channel(strings.ToUpper(strings.TrimSpace(hint))) {
	case ChannelSMS:
		return ChannelSMS
	default:
		return ChannelEmail
	}
}

type State string

const (
	StatePending State = "PENDING"
	StateSent    State = "SENT"
	StateFailed  State = "FAILED"
)

type Notification struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	PatientID     uuid.UUID
	Recipient     string
	Subject       string
	Body          string
	Channel       Channel
	State         State
	CreatedAt     time.Time
}
