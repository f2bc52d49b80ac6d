package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/scheduling/internal/availability"
	"github.com/clinicdesk/scheduling/internal/clinic"
	"github.com/clinicdesk/scheduling/internal/config"
)

func createDoctorHandler(repo *clinic.PgRepository, defaultSlotMinutes int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
			return
		}

		minutes := req.SlotMinutes
		if minutes == 0 {
			minutes = defaultSlotMinutes
		}
		if minutes < config.MinSlotMinutes {
			writeError(w, http.StatusBadRequest, "invalid_slot_minutes", "slot_minutes is below the minimum")
			return
		}

		doctor, err := repo.CreateDoctor(r.Context(), req.Name, req.Specialty, minutes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toDoctorResponse(doctor))
	}
}

func getDoctorHandler(repo *clinic.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		doctor, err := repo.GetDoctorByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toDoctorResponse(doctor))
	}
}

func listDoctorsHandler(repo *clinic.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, offset := pageParams(r)

		doctors, err := repo.ListDoctors(r.Context(), limit, offset)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		out := make([]DoctorResponse, 0, len(doctors))
		for i := range doctors {
			out = append(out, toDoctorResponse(&doctors[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func createPatientHandler(repo *clinic.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "invalid_name", "name is required")
			return
		}

		patient, err := repo.CreatePatient(r.Context(), req.Name, req.Email)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, PatientResponse{ID: patient.ID, Name: patient.Name, Email: patient.Email})
	}
}

func getPatientHandler(repo *clinic.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		patient, err := repo.GetPatientByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PatientResponse{ID: patient.ID, Name: patient.Name, Email: patient.Email})
	}
}

func replaceAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		var req ReplaceAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		windows := make([]availability.WeeklyWindow, 0, len(req.Windows))
		for _, p := range req.Windows {
			start, err := availability.ParseClock(p.StartTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
				return
			}
			end, err := availability.ParseClock(p.EndTime)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
				return
			}
			windows = append(windows, availability.WeeklyWindow{
				DoctorID:    doctorID,
				DayOfWeek:   time.Weekday(p.DayOfWeek),
				StartMinute: start,
				EndMinute:   end,
				Active:      true,
			})
		}

		saved, err := svc.SetWeeklyAvailability(r.Context(), doctorID, windows)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{DoctorID: doctorID, Windows: toWindowPayloads(saved)})
	}
}

func getAvailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		windows, err := svc.GetWeeklyAvailability(r.Context(), doctorID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{DoctorID: doctorID, Windows: toWindowPayloads(windows)})
	}
}

func generateSlotsHandler(svc *availability.Service, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}

		// An empty body means "defaults": today, configured horizon, the
		// doctor's own slot length.
		var req GenerateSlotsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var from, to time.Time
		var err error
		if req.From != "" {
			from, err = time.ParseInLocation("2006-01-02", req.From, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
				return
			}
		}
		if req.To != "" {
			to, err = time.ParseInLocation("2006-01-02", req.To, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
				return
			}
		}
		if req.DurationMinutes < 0 {
			writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must be positive")
			return
		}

		created, skipped, err := svc.GenerateSlots(r.Context(), doctorID, from, to, req.DurationMinutes)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, GenerateSlotsResponse{Created: created, Skipped: skipped})
	}
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
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
