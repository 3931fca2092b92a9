package notification

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Save inserts the notification or, when its id is already stored,
	// overwrites the state. Redelivered events therefore keep one record.
	Save(ctx context.Context, n Notification) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Notification, error)
	ListRecent(ctx context.Context, limit int) ([]Notification, error)
}
