package availability

import (
	"context"
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

func scanWindow(row pgx.Row) (*WeeklyWindow, error) {
	var w WeeklyWindow
	var day int

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&day,
		&w.StartMinute,
		&w.EndMinute,
		&w.Active,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.DayOfWeek = time.Weekday(day)
	return &w, nil
}

func (r *PgRepository) ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]WeeklyWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
		FROM availability_windows
		WHERE doctor_id = $1 AND active
		ORDER BY day_of_week, start_minute
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	var result []WeeklyWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ReplaceAll(ctx context.Context, doctorID uuid.UUID, windows []WeeklyWindow) ([]WeeklyWindow, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE availability_windows
		SET active = false,
		    updated_at = now()
		WHERE doctor_id = $1 AND active
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("deactivate windows: %w", err)
	}

	inserted := make([]WeeklyWindow, 0, len(windows))
	for _, w := range windows {
		row := tx.QueryRow(ctx, `
			INSERT INTO availability_windows (id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, now(), now())
			RETURNING id, doctor_id, day_of_week, start_minute, end_minute, active, created_at, updated_at
		`, uuid.New(), doctorID, int(w.DayOfWeek), w.StartMinute, w.EndMinute)

		created, err := scanWindow(row)
		if err != nil {
			return nil, fmt.Errorf("insert window: %w", err)
		}
		inserted = append(inserted, *created)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return inserted, nil
}

func (r *PgRepository) ListDoctorsWithActiveWindows(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT doctor_id
		FROM availability_windows
		WHERE active
	`)
	if err != nil {
		return nil, fmt.Errorf("list doctors with windows: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan doctor id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
