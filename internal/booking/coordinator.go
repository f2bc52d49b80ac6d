package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/clinic"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
	"github.com/clinicdesk/scheduling/internal/slot"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
)

var (
	ErrSlotContended     = errors.New("slot is currently being booked, please retry")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrDoctorMismatch    = errors.New("new slot belongs to a different doctor")
)

// SlotLedger is the slice of slot.Ledger the coordinator needs.
type SlotLedger interface {
	Get(ctx context.Context, id uuid.UUID) (*slot.Slot, error)
	Reserve(ctx context.Context, id uuid.UUID) (*slot.Slot, error)
	Release(ctx context.Context, id uuid.UUID) (*slot.Slot, error)
	AssignAppointment(ctx context.Context, slotID, appointmentID uuid.UUID) (*slot.Slot, error)
}

// Directory resolves the people referenced by an appointment.
type Directory interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*clinic.Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*clinic.Doctor, error)
}

// Coordinator composes the slot ledger and the appointment record into one
// booking workflow. There is no cross-entity transaction: the slot
// reservation is the authoritative step and appointment writes compensate by
// releasing the slot when they fail.
type Coordinator struct {
	repo      Repository
	ledger    SlotLedger
	directory Directory
	locker    redisclient.Locker
	logger    *zap.Logger
}

func NewCoordinator(repo Repository, ledger SlotLedger, directory Directory, locker redisclient.Locker, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		repo:      repo,
		ledger:    ledger,
		directory: directory,
		locker:    locker,
		logger:    logger,
	}
}

// Book reserves the slot and creates a scheduled appointment for the patient.
// The per-slot lock keeps concurrent bookers from racing through the
// reserve-then-create sequence; the ledger's conditional update remains the
// hard guarantee that only one of them wins.
func (c *Coordinator) Book(ctx context.Context, patientID, slotID uuid.UUID, notes string) (*Appointment, error) {
	if _, err := c.directory.GetPatientByID(ctx, patientID); err != nil {
		return nil, err
	}

	var created *Appointment

	err := c.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		reserved, err := c.ledger.Reserve(lockCtx, slotID)
		if err != nil {
			return err
		}

		appt, err := c.repo.Create(lockCtx, Appointment{
			ID:        uuid.New(),
			PatientID: patientID,
			DoctorID:  reserved.DoctorID,
			SlotID:    reserved.ID,
			StartTime: reserved.StartTime,
			Status:    StatusScheduled,
			Notes:     notes,
		})
		if err != nil {
			c.compensateReserve(lockCtx, slotID)
			return fmt.Errorf("create appointment: %w", err)
		}

		if _, err := c.ledger.AssignAppointment(lockCtx, slotID, appt.ID); err != nil {
			c.compensateBook(lockCtx, slotID, appt.ID)
			return fmt.Errorf("link appointment to slot: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	c.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"slot_id":    slotID.String(),
		"patient_id": patientID.String(),
		"start_time": created.StartTime,
	})

	c.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("slot_id", slotID.String()),
		zap.String("patient_id", patientID.String()),
	)

	return created, nil
}

// Confirm moves a scheduled appointment to confirmed.
func (c *Coordinator) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := c.transition(ctx, id, StatusConfirmed, StatusScheduled)
	if err != nil {
		return nil, err
	}
	c.logEvent(ctx, updated.ID, EventAppointmentConfirmed, map[string]any{})
	return updated, nil
}

// Complete moves a confirmed appointment to completed.
func (c *Coordinator) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := c.transition(ctx, id, StatusCompleted, StatusConfirmed)
	if err != nil {
		return nil, err
	}
	c.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{})
	return updated, nil
}

// Cancel ends a scheduled or confirmed appointment and returns its slot to
// the available pool. The status update decides any cancel/cancel race; the
// winner then releases the slot.
func (c *Coordinator) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	updated, err := c.transition(ctx, id, StatusCancelled, StatusScheduled, StatusConfirmed)
	if err != nil {
		return nil, err
	}

	if _, err := c.ledger.Release(ctx, updated.SlotID); err != nil {
		// The appointment is already cancelled; a stuck reserved slot is
		// surfaced rather than papered over.
		return nil, fmt.Errorf("release slot after cancel: %w", err)
	}

	c.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"slot_id": updated.SlotID.String(),
	})

	return updated, nil
}

// Reschedule moves the appointment to a new slot. The new slot is reserved
// before the old one is released, so the patient never holds zero slots: if
// the new reservation fails the old booking is untouched.
func (c *Coordinator) Reschedule(ctx context.Context, id, newSlotID uuid.UUID) (*Appointment, error) {
	appt, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, appt.Status)
	}

	oldSlotID := appt.SlotID

	var updated *Appointment

	err = c.locker.WithSlotLock(ctx, newSlotID, func(lockCtx context.Context) error {
		newSlot, err := c.ledger.Reserve(lockCtx, newSlotID)
		if err != nil {
			return err
		}

		if newSlot.DoctorID != appt.DoctorID {
			c.compensateReserve(lockCtx, newSlotID)
			return ErrDoctorMismatch
		}

		moved, err := c.repo.UpdateSlot(lockCtx, appt.ID, newSlot.ID, newSlot.StartTime)
		if err != nil {
			c.compensateReserve(lockCtx, newSlotID)
			return fmt.Errorf("repoint appointment: %w", err)
		}

		if _, err := c.ledger.AssignAppointment(lockCtx, newSlotID, appt.ID); err != nil {
			c.compensateReserve(lockCtx, newSlotID)
			return fmt.Errorf("link appointment to new slot: %w", err)
		}

		updated = moved
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	if _, err := c.ledger.Release(ctx, oldSlotID); err != nil {
		return nil, fmt.Errorf("release old slot after reschedule: %w", err)
	}

	c.logEvent(ctx, updated.ID, EventAppointmentRescheduled, map[string]any{
		"old_slot_id": oldSlotID.String(),
		"new_slot_id": newSlotID.String(),
		"start_time":  updated.StartTime,
	})

	return updated, nil
}

// Get retrieves an appointment by ID.
func (c *Coordinator) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return c.repo.GetByID(ctx, id)
}

// ListByPatient retrieves the patient's appointments, newest first.
func (c *Coordinator) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return c.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListByDoctor retrieves the doctor's appointments, newest first.
func (c *Coordinator) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	limit, offset = clampPage(limit, offset)
	return c.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// transition loads the appointment, rejects out-of-order moves, and applies
// the status change with a conditional update so races resolve to one winner.
func (c *Coordinator) transition(ctx context.Context, id uuid.UUID, to Status, from ...Status) (*Appointment, error) {
	appt, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, s := range from {
		if appt.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	updated, err := c.repo.UpdateStatus(ctx, id, to, from...)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost a race with a concurrent transition.
			return nil, fmt.Errorf("%w: appointment no longer %s", ErrInvalidTransition, appt.Status)
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	return updated, nil
}

// compensateReserve undoes a reservation after a later step failed.
func (c *Coordinator) compensateReserve(ctx context.Context, slotID uuid.UUID) {
	if _, err := c.ledger.Release(ctx, slotID); err != nil {
		c.logger.Error("failed to release slot during compensation",
			zap.String("slot_id", slotID.String()),
			zap.Error(err),
		)
	}
}

// compensateBook additionally voids the appointment row created before the
// slot link failed.
func (c *Coordinator) compensateBook(ctx context.Context, slotID, appointmentID uuid.UUID) {
	c.compensateReserve(ctx, slotID)
	if _, err := c.repo.UpdateStatus(ctx, appointmentID, StatusCancelled, StatusScheduled); err != nil {
		c.logger.Error("failed to void appointment during compensation",
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to marshal event payload",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := c.repo.InsertEvent(ctx, ev); err != nil {
		c.logger.Error("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
