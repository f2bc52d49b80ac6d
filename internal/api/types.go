package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/availability"
	"github.com/clinicdesk/scheduling/internal/booking"
	"github.com/clinicdesk/scheduling/internal/clinic"
	"github.com/clinicdesk/scheduling/internal/slot"
)

type CreateDoctorRequest struct {
	Name        string  `json:"name"`
	Specialty   *string `json:"specialty,omitempty"`
	SlotMinutes int     `json:"slot_minutes,omitempty"`
}

type DoctorResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Specialty   *string   `json:"specialty,omitempty"`
	SlotMinutes int       `json:"slot_minutes"`
}

func toDoctorResponse(d *clinic.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:          d.ID,
		Name:        d.Name,
		Specialty:   d.Specialty,
		SlotMinutes: d.SlotMinutes,
	}
}

type CreatePatientRequest struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

type PatientResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
}

// WindowPayload carries one weekly window over the wire. Times are "HH:MM".
type WindowPayload struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type ReplaceAvailabilityRequest struct {
	Windows []WindowPayload `json:"windows"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID       `json:"doctor_id"`
	Windows  []WindowPayload `json:"windows"`
}

func toWindowPayloads(windows []availability.WeeklyWindow) []WindowPayload {
	out := make([]WindowPayload, 0, len(windows))
	for _, w := range windows {
		out = append(out, WindowPayload{
			DayOfWeek: int(w.DayOfWeek),
			StartTime: availability.Clock(w.StartMinute),
			EndTime:   availability.Clock(w.EndMinute),
		})
	}
	return out
}

type GenerateSlotsRequest struct {
	From            string `json:"from,omitempty"` // YYYY-MM-DD
	To              string `json:"to,omitempty"`   // YYYY-MM-DD
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type GenerateSlotsResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

type SlotResponse struct {
	ID            uuid.UUID  `json:"id"`
	DoctorID      uuid.UUID  `json:"doctor_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Status        string     `json:"status"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}

func toSlotResponse(s *slot.Slot) SlotResponse {
	return SlotResponse{
		ID:            s.ID,
		DoctorID:      s.DoctorID,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Status:        string(s.Status),
		AppointmentID: s.AppointmentID,
	}
}

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	SlotID    string `json:"slot_id"`
	Notes     string `json:"notes,omitempty"`
}

type RescheduleRequest struct {
	SlotID string `json:"slot_id"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	SlotID    uuid.UUID `json:"slot_id"`
	StartTime time.Time `json:"start_time"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		SlotID:    a.SlotID,
		StartTime: a.StartTime,
		Status:    string(a.Status),
		Notes:     a.Notes,
	}
}
