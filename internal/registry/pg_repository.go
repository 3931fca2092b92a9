package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const patientColumns = `
	id, identification, identification_type, name, gender, birth_date,
	email, phone, address_street, address_number, address_city, status,
	created_at, updated_at`

const doctorColumns = `id, name, surname, specialty, created_at`

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var birthDate *time.Time

	err := row.Scan(
		&p.ID,
		&p.Identification,
		&p.IdentificationType,
		&p.Name,
		&p.Gender,
		&birthDate,
		&p.Email,
		&p.Phone,
		&p.Address.Street,
		&p.Address.Number,
		&p.Address.City,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	if birthDate != nil {
		p.BirthDate = birthDate.UTC()
	}
	return &p, nil
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Surname,
		&d.Specialty,
		&d.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	return &d, nil
}

func collectPatients(rows pgx.Rows) ([]Patient, error) {
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func collectDoctors(rows pgx.Rows) ([]Doctor, error) {
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func patientWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicatePatient
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Patients

func (r *PgRepository) CreatePatient(ctx context.Context, p Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
	`, p.ID, p.Identification, p.IdentificationType, p.Name, p.Gender, nullableDate(p.BirthDate),
		p.Email, p.Phone, p.Address.Street, p.Address.Number, p.Address.City, p.Status, p.CreatedAt)
	if err != nil {
		return patientWriteErr("insert patient", err)
	}
	return nil
}

func (r *PgRepository) UpdatePatient(ctx context.Context, p Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET email = $2,
		    phone = $3,
		    address_street = $4,
		    address_number = $5,
		    address_city = $6,
		    status = $7,
		    updated_at = $8
		WHERE id = $1
	`, p.ID, p.Email, p.Phone, p.Address.Street, p.Address.Number, p.Address.City, p.Status, p.UpdatedAt)
	if err != nil {
		return patientWriteErr("update patient", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetPatientByIdentification(ctx context.Context, identification string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE identification = $1
	`, identification)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context, limit, offset int) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

// Search matches literal substrings; strpos keeps % and _ in the query from
// acting as LIKE wildcards.
func (r *PgRepository) SearchPatients(ctx context.Context, query string) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE strpos(lower(name), lower($1)) > 0
		   OR strpos(lower(email), lower($1)) > 0
		   OR strpos(lower(identification), lower($1)) > 0
		ORDER BY name, id
	`, query)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

// Doctors

func (r *PgRepository) CreateDoctor(ctx context.Context, d Doctor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, name, surname, specialty, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, d.ID, d.Name, d.Surname, d.Specialty, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *PgRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	return collectDoctors(rows)
}

func (r *PgRepository) SearchDoctors(ctx context.Context, query string) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE strpos(lower(name), lower($1)) > 0
		   OR strpos(lower(surname), lower($1)) > 0
		   OR strpos(lower(specialty), lower($1)) > 0
		ORDER BY name, id
	`, query)
	if err != nil {
		return nil, err
	}
	return collectDoctors(rows)
}
