package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type memWindowRepo struct {
	windows map[uuid.UUID][]WeeklyWindow
}

func newMemWindowRepo() *memWindowRepo {
	return &memWindowRepo{windows: make(map[uuid.UUID][]WeeklyWindow)}
}

func (r *memWindowRepo) ListActiveByDoctor(_ context.Context, doctorID uuid.UUID) ([]WeeklyWindow, error) {
	return r.windows[doctorID], nil
}

func (r *memWindowRepo) ReplaceAll(_ context.Context, doctorID uuid.UUID, windows []WeeklyWindow) ([]WeeklyWindow, error) {
	saved := make([]WeeklyWindow, 0, len(windows))
	for _, w := range windows {
		w.ID = uuid.New()
		w.DoctorID = doctorID
		w.Active = true
		saved = append(saved, w)
	}
	r.windows[doctorID] = saved
	return saved, nil
}

func (r *memWindowRepo) ListDoctorsWithActiveWindows(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, ws := range r.windows {
		if len(ws) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type recordingMaterializer struct {
	candidates []CandidateSlot
	calls      int
}

func (m *recordingMaterializer) Materialize(_ context.Context, candidates []CandidateSlot) (int, int, error) {
	m.calls++
	m.candidates = candidates
	return len(candidates), 0, nil
}

var errUnknownDoctor = errors.New("doctor not found")

type staticDoctors struct {
	minutes map[uuid.UUID]int
}

func (d staticDoctors) SlotMinutes(_ context.Context, doctorID uuid.UUID) (int, error) {
	m, ok := d.minutes[doctorID]
	if !ok {
		return 0, errUnknownDoctor
	}
	return m, nil
}

func newTestService(doctorID uuid.UUID, slotMinutes, horizonDays int) (*Service, *memWindowRepo, *recordingMaterializer) {
	repo := newMemWindowRepo()
	mat := &recordingMaterializer{}
	doctors := staticDoctors{minutes: map[uuid.UUID]int{doctorID: slotMinutes}}
	svc := NewService(repo, mat, doctors, zap.NewNop(), time.UTC, horizonDays)
	return svc, repo, mat
}

func TestSetWeeklyAvailabilityReplacesSchedule(t *testing.T) {
	doctorID := uuid.New()
	svc, repo, _ := newTestService(doctorID, 30, 30)
	ctx := context.Background()

	first := []WeeklyWindow{
		{DayOfWeek: time.Monday, StartMinute: 8 * 60, EndMinute: 12 * 60},
		{DayOfWeek: time.Wednesday, StartMinute: 14 * 60, EndMinute: 18 * 60},
	}
	saved, err := svc.SetWeeklyAvailability(ctx, doctorID, first)
	if err != nil {
		t.Fatalf("SetWeeklyAvailability error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(saved))
	}

	second := []WeeklyWindow{
		{DayOfWeek: time.Friday, StartMinute: 9 * 60, EndMinute: 11 * 60},
	}
	if _, err := svc.SetWeeklyAvailability(ctx, doctorID, second); err != nil {
		t.Fatalf("SetWeeklyAvailability error: %v", err)
	}

	active, err := repo.ListActiveByDoctor(ctx, doctorID)
	if err != nil {
		t.Fatalf("ListActiveByDoctor error: %v", err)
	}
	if len(active) != 1 || active[0].DayOfWeek != time.Friday {
		t.Fatalf("expected only the Friday window to remain, got %+v", active)
	}
}

func TestSetWeeklyAvailabilityRejectsInvalidWindow(t *testing.T) {
	doctorID := uuid.New()
	svc, _, _ := newTestService(doctorID, 30, 30)

	bad := []WeeklyWindow{{DayOfWeek: time.Monday, StartMinute: 10 * 60, EndMinute: 9 * 60}}
	if _, err := svc.SetWeeklyAvailability(context.Background(), doctorID, bad); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestSetWeeklyAvailabilityUnknownDoctor(t *testing.T) {
	svc, _, _ := newTestService(uuid.New(), 30, 30)

	if _, err := svc.SetWeeklyAvailability(context.Background(), uuid.New(), nil); !errors.Is(err, errUnknownDoctor) {
		t.Fatalf("expected doctor lookup error, got %v", err)
	}
}

func TestGenerateSlotsExplicitRange(t *testing.T) {
	doctorID := uuid.New()
	svc, repo, mat := newTestService(doctorID, 30, 30)
	ctx := context.Background()

	repo.windows[doctorID] = []WeeklyWindow{
		{ID: uuid.New(), DoctorID: doctorID, DayOfWeek: time.Monday, StartMinute: 8 * 60, EndMinute: 9 * 60, Active: true},
	}

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	created, skipped, err := svc.GenerateSlots(ctx, doctorID, from, from, 0)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if created != 2 || skipped != 0 {
		t.Fatalf("created=%d skipped=%d, want 2/0", created, skipped)
	}
	if len(mat.candidates) != 2 {
		t.Fatalf("expected 2 candidates handed to the ledger, got %d", len(mat.candidates))
	}
}

func TestGenerateSlotsFallsBackToDoctorDuration(t *testing.T) {
	doctorID := uuid.New()
	svc, repo, mat := newTestService(doctorID, 20, 30)
	ctx := context.Background()

	repo.windows[doctorID] = []WeeklyWindow{
		{ID: uuid.New(), DoctorID: doctorID, DayOfWeek: time.Monday, StartMinute: 8 * 60, EndMinute: 9 * 60, Active: true},
	}

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	created, _, err := svc.GenerateSlots(ctx, doctorID, from, from, 0)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if created != 3 {
		t.Fatalf("expected 3 slots for a 20 minute duration, got %d", created)
	}
	want := 20 * time.Minute
	if got := mat.candidates[0].End.Sub(mat.candidates[0].Start); got != want {
		t.Fatalf("candidate length = %s, want %s", got, want)
	}
}

func TestGenerateSlotsHorizonExceeded(t *testing.T) {
	doctorID := uuid.New()
	svc, _, _ := newTestService(doctorID, 30, 30)

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 30)
	if _, _, err := svc.GenerateSlots(context.Background(), doctorID, from, to, 0); !errors.Is(err, ErrHorizonExceeded) {
		t.Fatalf("expected ErrHorizonExceeded, got %v", err)
	}
}

func TestGenerateSlotsInvalidRange(t *testing.T) {
	doctorID := uuid.New()
	svc, _, _ := newTestService(doctorID, 30, 30)

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	if _, _, err := svc.GenerateSlots(context.Background(), doctorID, from, from.AddDate(0, 0, -1), 0); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestGenerateSlotsNoWindows(t *testing.T) {
	doctorID := uuid.New()
	svc, _, mat := newTestService(doctorID, 30, 30)

	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	created, skipped, err := svc.GenerateSlots(context.Background(), doctorID, from, from.AddDate(0, 0, 6), 0)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	if created != 0 || skipped != 0 {
		t.Fatalf("created=%d skipped=%d, want 0/0", created, skipped)
	}
	if mat.calls != 0 {
		t.Fatal("materializer must not be called without candidates")
	}
}

func TestGenerateSlotsDefaultRange(t *testing.T) {
	doctorID := uuid.New()
	svc, repo, mat := newTestService(doctorID, 30, 7)
	ctx := context.Background()

	// One window on every weekday guarantees candidates regardless of what
	// today is.
	var windows []WeeklyWindow
	for d := time.Sunday; d <= time.Saturday; d++ {
		windows = append(windows, WeeklyWindow{
			ID: uuid.New(), DoctorID: doctorID, DayOfWeek: d,
			StartMinute: 8 * 60, EndMinute: 9 * 60, Active: true,
		})
	}
	repo.windows[doctorID] = windows

	created, _, err := svc.GenerateSlots(ctx, doctorID, time.Time{}, time.Time{}, 0)
	if err != nil {
		t.Fatalf("GenerateSlots error: %v", err)
	}
	// 7 days inclusive, 2 slots each.
	if created != 14 {
		t.Fatalf("expected 14 slots over the default horizon, got %d", created)
	}
	if mat.candidates[0].Start.Hour() != 8 {
		t.Fatalf("first candidate at %s, want 08:00", mat.candidates[0].Start)
	}
}

func TestGenerateForAllDoctors(t *testing.T) {
	doctorID := uuid.New()
	svc, repo, mat := newTestService(doctorID, 30, 7)

	repo.windows[doctorID] = []WeeklyWindow{
		{ID: uuid.New(), DoctorID: doctorID, DayOfWeek: time.Monday, StartMinute: 8 * 60, EndMinute: 9 * 60, Active: true},
	}

	if err := svc.GenerateForAllDoctors(context.Background()); err != nil {
		t.Fatalf("GenerateForAllDoctors error: %v", err)
	}
	if mat.calls == 0 {
		t.Fatal("expected at least one materialize call")
	}
}

func TestDaysInclusive(t *testing.T) {
	from := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	if got := daysInclusive(from, from); got != 1 {
		t.Fatalf("same day = %d, want 1", got)
	}
	if got := daysInclusive(from, from.AddDate(0, 0, 29)); got != 30 {
		t.Fatalf("30 day span = %d, want 30", got)
	}
}
