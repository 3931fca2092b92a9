package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository implements both registries in process.
type MemoryRepository struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]Patient
	doctors  map[uuid.UUID]Doctor
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients: make(map[uuid.UUID]Patient),
		doctors:  make(map[uuid.UUID]Doctor),
	}
}

func (r *MemoryRepository) CreatePatient(_ context.Context, p Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(p) {
		return ErrDuplicatePatient
	}
	r.patients[p.ID] = p
	return nil
}

func (r *MemoryRepository) UpdatePatient(_ context.Context, p Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	if r.conflicts(p) {
		return ErrDuplicatePatient
	}
	r.patients[p.ID] = p
	return nil
}

// conflicts reports whether another patient shares p's email or
// identification. Callers hold the lock.
func (r *MemoryRepository) conflicts(p Patient) bool {
	for _, existing := range r.patients {
		if existing.ID == p.ID {
			continue
		}
		if p.Email != "" && strings.EqualFold(existing.Email, p.Email) {
			return true
		}
		if p.Identification != "" && existing.Identification == p.Identification {
			return true
		}
	}
	return false
}

func (r *MemoryRepository) GetPatientByIdentification(_ context.Context, identification string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.patients {
		if p.Identification == identification {
			return &p, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *MemoryRepository) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListPatients(_ context.Context, limit, offset int) ([]Patient, error) {
	all := r.filterPatients(func(Patient) bool { return true })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) SearchPatients(_ context.Context, query string) ([]Patient, error) {
	q := strings.ToLower(query)
	return r.filterPatients(func(p Patient) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Email), q) ||
			strings.Contains(strings.ToLower(p.Identification), q)
	}), nil
}

func (r *MemoryRepository) CreateDoctor(_ context.Context, d Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.doctors[d.ID] = d
	return nil
}

func (r *MemoryRepository) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) ListDoctors(_ context.Context) ([]Doctor, error) {
	return r.filterDoctors(func(Doctor) bool { return true }), nil
}

func (r *MemoryRepository) SearchDoctors(_ context.Context, query string) ([]Doctor, error) {
	q := strings.ToLower(query)
	return r.filterDoctors(func(d Doctor) bool {
		return strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.Surname), q) ||
			strings.Contains(strings.ToLower(d.Specialty), q)
	}), nil
}

func (r *MemoryRepository) filterPatients(keep func(Patient) bool) []Patient {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Patient
	for _, p := range r.patients {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r *MemoryRepository) filterDoctors(keep func(Doctor) bool) []Doctor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Doctor
	for _, d := range r.doctors {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
