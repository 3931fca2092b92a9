package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is split per owning service; a process only creates the tables it owns.
type Schema string

const (
	SchemaRegistry     Schema = "registry"
	SchemaScheduling   Schema = "scheduling"
	SchemaNotification Schema = "notification"
)

var statements = map[Schema][]string{
	SchemaRegistry: {
		`CREATE TABLE IF NOT EXISTS patients (
			id                  UUID PRIMARY KEY,
			identification      TEXT NOT NULL DEFAULT '',
			identification_type TEXT NOT NULL DEFAULT '',
			name                TEXT NOT NULL,
			gender              TEXT NOT NULL DEFAULT '',
			birth_date          DATE,
			email               TEXT NOT NULL DEFAULT '',
			phone               TEXT NOT NULL DEFAULT '',
			address_street      TEXT NOT NULL DEFAULT '',
			address_number      TEXT NOT NULL DEFAULT '',
			address_city        TEXT NOT NULL DEFAULT '',
			status              TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS patients_email_idx ON patients (lower(email)) WHERE email <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS patients_identification_idx ON patients (identification) WHERE identification <> ''`,
		`CREATE TABLE IF NOT EXISTS doctors (
			id         UUID PRIMARY KEY,
			name       TEXT NOT NULL,
			surname    TEXT NOT NULL DEFAULT '',
			specialty  TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id               UUID PRIMARY KEY,
			doctor_id        UUID NOT NULL REFERENCES doctors(id),
			weekday          TEXT NOT NULL,
			start_time       TEXT NOT NULL,
			end_time         TEXT NOT NULL,
			duration_minutes INT  NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (doctor_id, weekday)
		)`,
		`CREATE TABLE IF NOT EXISTS slots (
			id          UUID PRIMARY KEY,
			schedule_id UUID NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
			start_time  TEXT NOT NULL,
			end_time    TEXT NOT NULL,
			state       TEXT NOT NULL DEFAULT 'AVAILABLE',
			holder      TEXT NOT NULL DEFAULT '',
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS slots_schedule_idx ON slots (schedule_id, start_time)`,
	},
	SchemaScheduling: {
		`CREATE TABLE IF NOT EXISTS appointments (
			id               UUID PRIMARY KEY,
			slot_id          UUID NOT NULL,
			date_time        TIMESTAMPTZ NOT NULL,
			reason           TEXT NOT NULL,
			state            TEXT NOT NULL,
			patient_id       UUID NOT NULL,
			patient_name     TEXT NOT NULL,
			patient_email    TEXT NOT NULL,
			patient_phone    TEXT NOT NULL,
			doctor_id        UUID NOT NULL,
			doctor_name      TEXT NOT NULL,
			doctor_specialty TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id, date_time)`,
		`CREATE TABLE IF NOT EXISTS pending_releases (
			id         BIGSERIAL PRIMARY KEY,
			slot_id    UUID NOT NULL,
			holder     TEXT NOT NULL,
			reason     TEXT NOT NULL,
			attempts   INT  NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (slot_id, holder)
		)`,
		`CREATE TABLE IF NOT EXISTS event_logs (
			id             BIGSERIAL PRIMARY KEY,
			event_type     TEXT NOT NULL,
			appointment_id UUID,
			payload        JSONB,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS event_logs_appointment_idx ON event_logs (appointment_id, created_at)`,
	},
	SchemaNotification: {
		`CREATE TABLE IF NOT EXISTS notifications (
			id             UUID PRIMARY KEY,
			appointment_id UUID NOT NULL,
			patient_id     UUID NOT NULL,
			recipient      TEXT NOT NULL,
			subject        TEXT NOT NULL,
			body           TEXT NOT NULL,
			channel        TEXT NOT NULL,
			state          TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS notifications_appointment_idx ON notifications (appointment_id)`,
	},
}

// EnsureSchema creates the tables of the given schemas if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, schemas ...Schema) error {
	for _, s := range schemas {
		stmts, ok := statements[s]
		if !ok {
			return fmt.Errorf("unknown schema %q", s)
		}
		for _, stmt := range stmts {
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure %s schema: %w", s, err)
			}
		}
	}
	return nil
}
