package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `
	id, slot_id, date_time, reason, state,
	patient_id, patient_name, patient_email, patient_phone,
	doctor_id, doctor_name, doctor_specialty,
	created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.DateTime,
		&a.Reason,
		&a.State,
		&a.Patient.ID,
		&a.Patient.Name,
		&a.Patient.Email,
		&a.Patient.Phone,
		&a.Doctor.ID,
		&a.Doctor.Name,
		&a.Doctor.Specialty,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.DateTime = a.DateTime.UTC()
	return &a, nil
}

func scanPendingRelease(row pgx.Row) (*PendingRelease, error) {
	var pr PendingRelease

	err := row.Scan(
		&pr.ID,
		&pr.SlotID,
		&pr.Holder,
		&pr.Reason,
		&pr.Attempts,
		&pr.LastError,
		&pr.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pr, nil
}

// Interface methods

func (r *PgRepository) Create(ctx context.Context, a *Appointment) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		RETURNING created_at, updated_at
	`, a.ID, a.SlotID, a.DateTime, a.Reason, a.State,
		a.Patient.ID, a.Patient.Name, a.Patient.Email, a.Patient.Phone,
		a.Doctor.ID, a.Doctor.Name, a.Doctor.Specialty)

	if err := row.Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) Update(ctx context.Context, a *Appointment, expected State) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET state = $2,
		    reason = $3,
		    date_time = $4,
		    updated_at = now()
		WHERE id = $1
		  AND state = $5
		RETURNING updated_at
	`, a.ID, a.State, a.Reason, a.DateTime, expected)

	if err := row.Scan(&a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.Get(ctx, a.ID); getErr != nil {
				return getErr
			}
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) List(ctx context.Context, f Filter) ([]Appointment, error) {
	var from, to *time.Time
	if !f.Date.IsZero() {
		day := time.Date(f.Date.Year(), f.Date.Month(), f.Date.Day(), 0, 0, 0, 0, time.UTC)
		next := day.AddDate(0, 0, 1)
		from, to = &day, &next
	}
	var patientID *uuid.UUID
	if f.PatientID != uuid.Nil {
		patientID = &f.PatientID
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1::timestamptz IS NULL OR date_time >= $1)
		  AND ($2::timestamptz IS NULL OR date_time < $2)
		  AND ($3::uuid IS NULL OR patient_id = $3)
		ORDER BY date_time, id
	`, from, to, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) AddPendingRelease(ctx context.Context, pr PendingRelease) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pending_releases (slot_id, holder, reason, last_error)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slot_id, holder) DO UPDATE
		SET last_error = EXCLUDED.last_error
	`, pr.SlotID, pr.Holder, pr.Reason, pr.LastError)
	if err != nil {
		return fmt.Errorf("insert pending release: %w", err)
	}
	return nil
}

func (r *PgRepository) ListPendingReleases(ctx context.Context, limit int) ([]PendingRelease, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, slot_id, holder, reason, attempts, last_error, created_at
		FROM pending_releases
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []PendingRelease
	for rows.Next() {
		pr, err := scanPendingRelease(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *pr)
	}
	return result, rows.Err()
}

func (r *PgRepository) DeletePendingRelease(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_releases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pending release: %w", err)
	}
	return nil
}

func (r *PgRepository) RecordReleaseAttempt(ctx context.Context, id int64, lastErr string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pending_releases
		SET attempts = attempts + 1,
		    last_error = $2
		WHERE id = $1
	`, id, lastErr)
	if err != nil {
		return fmt.Errorf("record release attempt: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
