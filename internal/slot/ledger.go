package slot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/availability"
)

var (
	ErrSlotUnavailable   = errors.New("slot is not available")
	ErrInvalidTransition = errors.New("invalid slot status transition")
)

// Ledger is the authoritative holder of slot state. Every status change goes
// through an atomic conditional update in the repository, so two concurrent
// reservations of the same slot can never both succeed.
//
// Allowed transitions: available <-> reserved (reserve/release) and
// available <-> blocked (block/unblock). A reserved slot can be neither
// blocked nor deleted.
type Ledger struct {
	repo   Repository
	logger *zap.Logger
}

func NewLedger(repo Repository, logger *zap.Logger) *Ledger {
	return &Ledger{repo: repo, logger: logger}
}

// Materialize inserts one available slot per candidate. Candidates that
// overlap an existing slot for the doctor are counted as skipped, which makes
// repeated generation over the same horizon a no-op.
func (l *Ledger) Materialize(ctx context.Context, candidates []availability.CandidateSlot) (created, skipped int, err error) {
	for _, c := range candidates {
		inserted, err := l.repo.Insert(ctx, Slot{
			ID:        uuid.New(),
			DoctorID:  c.DoctorID,
			StartTime: c.Start,
			EndTime:   c.End,
			Status:    StatusAvailable,
		})
		if err != nil {
			return created, skipped, fmt.Errorf("materialize %s: %w", c.Start.Format(time.RFC3339), err)
		}
		if inserted {
			created++
		} else {
			skipped++
		}
	}

	return created, skipped, nil
}

// ListAvailable returns the doctor's available slots on the given calendar
// date, ordered by start time.
func (l *Ledger) ListAvailable(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return l.repo.ListAvailableInRange(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
}

// Get returns the slot regardless of status.
func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return l.repo.GetByID(ctx, id)
}

// Reserve atomically claims an available slot. Exactly one of any number of
// concurrent callers wins; the rest get ErrSlotUnavailable.
func (l *Ledger) Reserve(ctx context.Context, id uuid.UUID) (*Slot, error) {
	s, err := l.repo.UpdateStatus(ctx, id, StatusAvailable, StatusReserved)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, l.missOrState(ctx, id, ErrSlotUnavailable)
		}
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	return s, nil
}

// Release returns a reserved slot to the available pool and drops its
// appointment link.
func (l *Ledger) Release(ctx context.Context, id uuid.UUID) (*Slot, error) {
	s, err := l.repo.UpdateStatus(ctx, id, StatusReserved, StatusAvailable)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, l.missOrState(ctx, id, ErrInvalidTransition)
		}
		return nil, fmt.Errorf("release slot: %w", err)
	}
	return s, nil
}

// Block takes an available slot out of circulation for a manual hold.
func (l *Ledger) Block(ctx context.Context, id uuid.UUID) (*Slot, error) {
	s, err := l.repo.UpdateStatus(ctx, id, StatusAvailable, StatusBlocked)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, l.missOrState(ctx, id, ErrInvalidTransition)
		}
		return nil, fmt.Errorf("block slot: %w", err)
	}
	return s, nil
}

// Unblock reverses a manual hold.
func (l *Ledger) Unblock(ctx context.Context, id uuid.UUID) (*Slot, error) {
	s, err := l.repo.UpdateStatus(ctx, id, StatusBlocked, StatusAvailable)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, l.missOrState(ctx, id, ErrInvalidTransition)
		}
		return nil, fmt.Errorf("unblock slot: %w", err)
	}
	return s, nil
}

// AssignAppointment links the owning appointment to a reserved slot.
func (l *Ledger) AssignAppointment(ctx context.Context, slotID, appointmentID uuid.UUID) (*Slot, error) {
	s, err := l.repo.AssignAppointment(ctx, slotID, appointmentID)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, l.missOrState(ctx, slotID, ErrInvalidTransition)
		}
		return nil, fmt.Errorf("assign appointment: %w", err)
	}
	return s, nil
}

// Delete removes a slot that is not reserved.
func (l *Ledger) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := l.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if !deleted {
		return l.missOrState(ctx, id, ErrInvalidTransition)
	}
	return nil
}

// missOrState distinguishes a nonexistent slot from one in the wrong status
// after a conditional update matched no row.
func (l *Ledger) missOrState(ctx context.Context, id uuid.UUID, stateErr error) error {
	current, err := l.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return ErrSlotNotFound
		}
		return fmt.Errorf("load slot: %w", err)
	}
	return fmt.Errorf("%w: slot is %s", stateErr, current.Status)
}
