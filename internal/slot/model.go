package slot

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusBlocked   Status = "blocked"
)

// Slot is one fixed-duration bookable unit of a doctor's time.
// AppointmentID is set while the slot is reserved and cleared on release.
type Slot struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	StartTime     time.Time
	EndTime       time.Time
	Status        Status
	AppointmentID *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
