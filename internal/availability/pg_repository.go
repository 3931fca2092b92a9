package availability

import (
	"context"
	"errors"
	"fmt"

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

// Helpers

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var start, end string

	err := row.Scan(
		&s.ID,
		&s.ScheduleID,
		&start,
		&end,
		&s.State,
		&s.Holder,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	if s.StartTime, err = ParseClock(start); err != nil {
		return nil, fmt.Errorf("slot %s start: %w", s.ID, err)
	}
	if s.EndTime, err = ParseClock(end); err != nil {
		return nil, fmt.Errorf("slot %s end: %w", s.ID, err)
	}
	return &s, nil
}

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	var start, end string

	err := row.Scan(
		&s.ID,
		&s.Config.DoctorID,
		&s.Config.Weekday,
		&start,
		&end,
		&s.Config.DurationMinutes,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	if s.Config.StartTime, err = ParseClock(start); err != nil {
		return nil, err
	}
	if s.Config.EndTime, err = ParseClock(end); err != nil {
		return nil, err
	}
	return &s, nil
}

// Interface methods

// ReserveIfAvailable relies on the row lock taken by the conditional UPDATE:
// a concurrent reservation waits, re-evaluates state and affects zero rows.
func (r *PgRepository) ReserveIfAvailable(ctx context.Context, slotID uuid.UUID, holder string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET state = 'RESERVED',
		    holder = $2,
		    updated_at = now()
		WHERE id = $1
		  AND state = 'AVAILABLE'
	`, slotID, holder)
	if err != nil {
		return false, fmt.Errorf("reserve slot: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) Release(ctx context.Context, slotID uuid.UUID, holder string) error {
	if holder == "" {
		return ErrHolderRequired
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE slots
		SET state = 'AVAILABLE',
		    holder = '',
		    updated_at = now()
		WHERE id = $1
		  AND state = 'RESERVED'
		  AND holder = $2
	`, slotID, holder)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	slot, err := r.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.State == SlotAvailable {
		return nil
	}
	return ErrSlotHeldByOther
}

func (r *PgRepository) GetSlot(ctx context.Context, slotID uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, schedule_id, start_time, end_time, state, holder, updated_at
		FROM slots
		WHERE id = $1
	`, slotID)
	return scanSlot(row)
}

func (r *PgRepository) GetSchedule(ctx context.Context, doctorID uuid.UUID, weekday Weekday) (*Schedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, weekday, start_time, end_time, duration_minutes, created_at
		FROM schedules
		WHERE doctor_id = $1 AND weekday = $2
	`, doctorID, weekday)
	return scanSchedule(row)
}

func (r *PgRepository) ReplaceSchedule(ctx context.Context, schedule Schedule, slots []Slot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace schedule: %w", err)
	}
	defer tx.Rollback(ctx)

	var oldID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM schedules
		WHERE doctor_id = $1 AND weekday = $2
		FOR UPDATE
	`, schedule.Config.DoctorID, schedule.Config.Weekday).Scan(&oldID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return fmt.Errorf("lock existing schedule: %w", err)
	default:
		// Row locks on the old slots: a concurrent reserve either committed
		// before (seen here) or blocks until the slots are gone.
		rows, err := tx.Query(ctx, `
			SELECT state FROM slots
			WHERE schedule_id = $1
			FOR UPDATE
		`, oldID)
		if err != nil {
			return fmt.Errorf("lock old slots: %w", err)
		}
		states, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("check reserved slots: %w", err)
		}
		for _, state := range states {
			if SlotState(state) == SlotReserved {
				return ErrScheduleHasReservations
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, oldID); err != nil {
			return fmt.Errorf("delete old schedule: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO schedules (id, doctor_id, weekday, start_time, end_time, duration_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, schedule.ID, schedule.Config.DoctorID, schedule.Config.Weekday,
		schedule.Config.StartTime.String(), schedule.Config.EndTime.String(), schedule.Config.DurationMinutes); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}

	rows := make([][]any, 0, len(slots))
	for _, s := range slots {
		rows = append(rows, []any{s.ID, s.ScheduleID, s.StartTime.String(), s.EndTime.String(), string(s.State), s.Holder})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"slots"},
		[]string{"id", "schedule_id", "start_time", "end_time", "state", "holder"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return fmt.Errorf("insert slots: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) ListSlots(ctx context.Context, doctorID uuid.UUID, weekday Weekday) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.schedule_id, s.start_time, s.end_time, s.state, s.holder, s.updated_at
		FROM slots s
		JOIN schedules sc ON sc.id = s.schedule_id
		WHERE sc.doctor_id = $1 AND sc.weekday = $2
		ORDER BY s.start_time
	`, doctorID, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
