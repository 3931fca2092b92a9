package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu       sync.Mutex
	items    map[uuid.UUID]Appointment
	releases map[int64]PendingRelease
	events   []EventLog
	nextID   int64
	now      func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:    make(map[uuid.UUID]Appointment),
		releases: make(map[int64]PendingRelease),
		now:      time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	r.items[a.ID] = *a
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, a *Appointment, expected State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[a.ID]
	if !ok {
		return ErrAppointmentNotFound
	}
	if stored.State != expected {
		return ErrConcurrentUpdate
	}
	stored.State = a.State
	stored.Reason = a.Reason
	stored.DateTime = a.DateTime
	stored.UpdatedAt = r.now().UTC()
	a.UpdatedAt = stored.UpdatedAt
	r.items[a.ID] = stored
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Appointment
	for _, a := range r.items {
		if f.PatientID != uuid.Nil && a.Patient.ID != f.PatientID {
			continue
		}
		if !f.Date.IsZero() {
			y1, m1, d1 := a.DateTime.UTC().Date()
			y2, m2, d2 := f.Date.Date()
			if y1 != y2 || m1 != m2 || d1 != d2 {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateTime.Equal(out[j].DateTime) {
			return out[i].DateTime.Before(out[j].DateTime)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryRepository) AddPendingRelease(_ context.Context, pr PendingRelease) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.releases {
		if existing.SlotID == pr.SlotID && existing.Holder == pr.Holder {
			existing.LastError = pr.LastError
			r.releases[id] = existing
			return nil
		}
	}
	r.nextID++
	pr.ID = r.nextID
	pr.CreatedAt = r.now().UTC()
	r.releases[pr.ID] = pr
	return nil
}

func (r *MemoryRepository) ListPendingReleases(_ context.Context, limit int) ([]PendingRelease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PendingRelease, 0, len(r.releases))
	for _, pr := range r.releases {
		out = append(out, pr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) DeletePendingRelease(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.releases, id)
	return nil
}

func (r *MemoryRepository) RecordReleaseAttempt(_ context.Context, id int64, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if pr, ok := r.releases[id]; ok {
		pr.Attempts++
		pr.LastError = lastErr
		r.releases[id] = pr
	}
	return nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ev.ID = r.nextID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = r.now().UTC()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns the event log of one appointment in insertion order.
func (r *MemoryRepository) Events(appointmentID uuid.UUID) []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []EventLog
	for _, ev := range r.events {
		if ev.AppointmentID == appointmentID {
			out = append(out, ev)
		}
	}
	return out
}
