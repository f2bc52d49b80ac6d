package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the coordinator.
type Repository interface {
	Create(ctx context.Context, appt Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus atomically moves the appointment to the target status,
	// provided its current status is one of from. Returns
	// ErrAppointmentNotFound when no row matched.
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*Appointment, error)

	// UpdateSlot repoints a live appointment at a new slot and refreshes the
	// denormalized start time.
	UpdateSlot(ctx context.Context, id uuid.UUID, slotID uuid.UUID, startTime time.Time) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
