package slot

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound = errors.New("slot not found")
)

// Repository contains all DB interactions needed by the ledger.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)

	// Insert persists the slot unless an overlapping slot already exists for
	// the same doctor. Returns false on overlap, true when a row was written.
	Insert(ctx context.Context, s Slot) (bool, error)

	// ListAvailableInRange returns available slots for the doctor whose start
	// falls in [from, to), ordered by start ascending.
	ListAvailableInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Slot, error)

	// UpdateStatus atomically moves the slot from one status to another.
	// The appointment link is cleared unless the slot stays reserved.
	// Returns ErrSlotNotFound when no row is in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Slot, error)

	// AssignAppointment links an appointment to a reserved slot.
	AssignAppointment(ctx context.Context, slotID, appointmentID uuid.UUID) (*Slot, error)

	// Delete removes the slot unless it is reserved. Returns false when no
	// row was deleted.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}
