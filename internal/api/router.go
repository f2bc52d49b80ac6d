package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/availability"
	"github.com/clinicdesk/scheduling/internal/booking"
	"github.com/clinicdesk/scheduling/internal/clinic"
	"github.com/clinicdesk/scheduling/internal/slot"
)

type RouterConfig struct {
	Availability       *availability.Service
	Ledger             *slot.Ledger
	Coordinator        *booking.Coordinator
	Clinic             *clinic.PgRepository
	PgPool             *pgxpool.Pool
	Redis              *redis.Client
	Logger             *zap.Logger
	Location           *time.Location
	DefaultSlotMinutes int
	Env                string
	Version            string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/doctors", createDoctorHandler(cfg.Clinic, cfg.DefaultSlotMinutes))
	r.Get("/doctors", listDoctorsHandler(cfg.Clinic))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Clinic))
	r.Put("/doctors/{id}/availability", replaceAvailabilityHandler(cfg.Availability))
	r.Get("/doctors/{id}/availability", getAvailabilityHandler(cfg.Availability))
	r.Post("/doctors/{id}/slots/generate", generateSlotsHandler(cfg.Availability, cfg.Location))
	r.Get("/doctors/{id}/slots", listAvailableSlotsHandler(cfg.Ledger, cfg.Location))

	r.Post("/patients", createPatientHandler(cfg.Clinic))
	r.Get("/patients/{id}", getPatientHandler(cfg.Clinic))

	r.Post("/slots/{id}/block", blockSlotHandler(cfg.Ledger))
	r.Post("/slots/{id}/unblock", unblockSlotHandler(cfg.Ledger))
	r.Delete("/slots/{id}", deleteSlotHandler(cfg.Ledger))

	r.Post("/appointments", bookAppointmentHandler(cfg.Coordinator))
	r.Get("/appointments", listAppointmentsHandler(cfg.Coordinator))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Coordinator))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Coordinator))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Coordinator))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Coordinator))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Coordinator))

	return r
}
