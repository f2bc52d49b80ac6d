package slot

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

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var appointmentID *uuid.UUID

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&appointmentID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.AppointmentID = appointmentID
	return &s, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, start_time, end_time, status, appointment_id, created_at, updated_at
		FROM slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

// Insert relies on the slots_no_overlap exclusion constraint: a candidate
// whose [start, end) range touches an existing slot for the same doctor is
// silently skipped, which is what makes regeneration idempotent.
func (r *PgRepository) Insert(ctx context.Context, s Slot) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO slots (id, doctor_id, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT ON CONSTRAINT slots_no_overlap DO NOTHING
	`, s.ID, s.DoctorID, s.StartTime, s.EndTime, s.Status)
	if err != nil {
		return false, fmt.Errorf("insert slot: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) ListAvailableInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, start_time, end_time, status, appointment_id, created_at, updated_at
		FROM slots
		WHERE doctor_id = $1
		  AND status = 'available'
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slots
		SET status = $2,
		    appointment_id = CASE WHEN $2 = 'reserved' THEN appointment_id ELSE NULL END,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, doctor_id, start_time, end_time, status, appointment_id, created_at, updated_at
	`, id, to, from)

	return scanSlot(row)
}

func (r *PgRepository) AssignAppointment(ctx context.Context, slotID, appointmentID uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE slots
		SET appointment_id = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'reserved'
		RETURNING id, doctor_id, start_time, end_time, status, appointment_id, created_at, updated_at
	`, slotID, appointmentID)

	return scanSlot(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE id = $1
		  AND status <> 'reserved'
	`, id)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}
