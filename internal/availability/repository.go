package availability

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists weekly availability windows.
type Repository interface {
	// ListActiveByDoctor returns the doctor's active windows ordered by
	// (day_of_week, start_minute).
	ListActiveByDoctor(ctx context.Context, doctorID uuid.UUID) ([]WeeklyWindow, error)

	// ReplaceAll deactivates every window the doctor currently has and
	// inserts the given set, all in one transaction. Old rows stay around
	// for history.
	ReplaceAll(ctx context.Context, doctorID uuid.UUID, windows []WeeklyWindow) ([]WeeklyWindow, error)

	// ListDoctorsWithActiveWindows returns the distinct doctors that have at
	// least one active window. Used by the slot worker.
	ListDoctorsWithActiveWindows(ctx context.Context) ([]uuid.UUID, error)
}
