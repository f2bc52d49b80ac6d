package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Materializer turns candidate slots into persisted ledger entries.
// Implemented by slot.Ledger.
type Materializer interface {
	Materialize(ctx context.Context, candidates []CandidateSlot) (created, skipped int, err error)
}

// DoctorSource resolves per-doctor scheduling settings.
type DoctorSource interface {
	SlotMinutes(ctx context.Context, doctorID uuid.UUID) (int, error)
}

// Service owns weekly availability configuration and slot generation.
type Service struct {
	repo        Repository
	ledger      Materializer
	doctors     DoctorSource
	logger      *zap.Logger
	location    *time.Location
	horizonDays int
}

func NewService(repo Repository, ledger Materializer, doctors DoctorSource, logger *zap.Logger, location *time.Location, horizonDays int) *Service {
	return &Service{
		repo:        repo,
		ledger:      ledger,
		doctors:     doctors,
		logger:      logger,
		location:    location,
		horizonDays: horizonDays,
	}
}

// SetWeeklyAvailability replaces the doctor's whole weekly schedule. Prior
// windows are deactivated, never patched, so a failed save cannot leave a
// half-updated week behind.
func (s *Service) SetWeeklyAvailability(ctx context.Context, doctorID uuid.UUID, windows []WeeklyWindow) ([]WeeklyWindow, error) {
	if _, err := s.doctors.SlotMinutes(ctx, doctorID); err != nil {
		return nil, err
	}

	for _, w := range windows {
		if err := w.Validate(); err != nil {
			return nil, err
		}
	}

	saved, err := s.repo.ReplaceAll(ctx, doctorID, windows)
	if err != nil {
		return nil, fmt.Errorf("replace availability: %w", err)
	}

	s.logger.Info("weekly availability replaced",
		zap.String("doctor_id", doctorID.String()),
		zap.Int("windows", len(saved)),
	)

	return saved, nil
}

// GetWeeklyAvailability returns the doctor's active windows.
func (s *Service) GetWeeklyAvailability(ctx context.Context, doctorID uuid.UUID) ([]WeeklyWindow, error) {
	if _, err := s.doctors.SlotMinutes(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.repo.ListActiveByDoctor(ctx, doctorID)
}

// GenerateSlots expands the doctor's active windows over [from, to] and
// materializes the result. A zero from defaults to today, a zero to defaults
// to from plus the configured horizon, and durationMinutes 0 falls back to
// the doctor's own slot length. Regeneration over an already materialized
// range is safe: existing slots are skipped, not duplicated.
func (s *Service) GenerateSlots(ctx context.Context, doctorID uuid.UUID, from, to time.Time, durationMinutes int) (created, skipped int, err error) {
	doctorMinutes, err := s.doctors.SlotMinutes(ctx, doctorID)
	if err != nil {
		return 0, 0, err
	}
	if durationMinutes == 0 {
		durationMinutes = doctorMinutes
	}

	now := time.Now().In(s.location)
	if from.IsZero() {
		from = now
	}
	from = truncateToDay(from.In(s.location))
	if to.IsZero() {
		to = from.AddDate(0, 0, s.horizonDays-1)
	}
	to = truncateToDay(to.In(s.location))

	if from.After(to) {
		return 0, 0, ErrInvalidRange
	}
	if daysInclusive(from, to) > s.horizonDays {
		return 0, 0, fmt.Errorf("%w: %d days requested, limit %d", ErrHorizonExceeded, daysInclusive(from, to), s.horizonDays)
	}

	windows, err := s.repo.ListActiveByDoctor(ctx, doctorID)
	if err != nil {
		return 0, 0, fmt.Errorf("load windows: %w", err)
	}

	candidates, err := Expand(windows, durationMinutes, from, to)
	if err != nil {
		return 0, 0, err
	}
	if len(candidates) == 0 {
		return 0, 0, nil
	}

	created, skipped, err = s.ledger.Materialize(ctx, candidates)
	if err != nil {
		return 0, 0, fmt.Errorf("materialize slots: %w", err)
	}

	s.logger.Info("slots generated",
		zap.String("doctor_id", doctorID.String()),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("duration_minutes", durationMinutes),
		zap.Int("created", created),
		zap.Int("skipped", skipped),
	)

	return created, skipped, nil
}

// GenerateForAllDoctors rematerializes the configured horizon for every
// doctor that has active windows. Called by the slot worker.
func (s *Service) GenerateForAllDoctors(ctx context.Context) error {
	doctorIDs, err := s.repo.ListDoctorsWithActiveWindows(ctx)
	if err != nil {
		return fmt.Errorf("list doctors: %w", err)
	}

	for _, id := range doctorIDs {
		if _, _, err := s.GenerateSlots(ctx, id, time.Time{}, time.Time{}, 0); err != nil {
			s.logger.Error("horizon generation failed",
				zap.String("doctor_id", id.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

func daysInclusive(from, to time.Time) int {
	days := 1
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}
