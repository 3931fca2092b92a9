package notification

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]Notification
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]Notification)}
}

func (r *MemoryRepository) Save(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.records[n.ID]; ok {
		existing.State = n.State
		r.records[n.ID] = existing
		return nil
	}
	r.records[n.ID] = n
	return nil
}

func (r *MemoryRepository) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]Notification, error) {
	out := r.sorted()
	filtered := out[:0]
	for _, n := range out {
		if n.AppointmentID == appointmentID {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

func (r *MemoryRepository) ListRecent(_ context.Context, limit int) ([]Notification, error) {
	out := r.sorted()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) sorted() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Notification, 0, len(r.records))
	for _, n := range r.records {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
