package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/clinic"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
	"github.com/clinicdesk/scheduling/internal/slot"
)

type fakeLedger struct {
	mu    sync.Mutex
	slots map[uuid.UUID]slot.Slot
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{slots: make(map[uuid.UUID]slot.Slot)}
}

func (l *fakeLedger) add(s slot.Slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.slots[s.ID] = s
}

func (l *fakeLedger) status(id uuid.UUID) slot.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slots[id].Status
}

func (l *fakeLedger) Get(_ context.Context, id uuid.UUID) (*slot.Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	return &s, nil
}

func (l *fakeLedger) Reserve(_ context.Context, id uuid.UUID) (*slot.Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	if s.Status != slot.StatusAvailable {
		return nil, slot.ErrSlotUnavailable
	}
	s.Status = slot.StatusReserved
	l.slots[id] = s
	return &s, nil
}

func (l *fakeLedger) Release(_ context.Context, id uuid.UUID) (*slot.Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	if s.Status != slot.StatusReserved {
		return nil, slot.ErrInvalidTransition
	}
	s.Status = slot.StatusAvailable
	s.AppointmentID = nil
	l.slots[id] = s
	return &s, nil
}

func (l *fakeLedger) AssignAppointment(_ context.Context, slotID, appointmentID uuid.UUID) (*slot.Slot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[slotID]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	if s.Status != slot.StatusReserved {
		return nil, slot.ErrInvalidTransition
	}
	s.AppointmentID = &appointmentID
	l.slots[slotID] = s
	return &s, nil
}

type fakeDirectory struct {
	patients map[uuid.UUID]clinic.Patient
	doctors  map[uuid.UUID]clinic.Doctor
}

func (d *fakeDirectory) GetPatientByID(_ context.Context, id uuid.UUID) (*clinic.Patient, error) {
	p, ok := d.patients[id]
	if !ok {
		return nil, clinic.ErrPatientNotFound
	}
	return &p, nil
}

func (d *fakeDirectory) GetDoctorByID(_ context.Context, id uuid.UUID) (*clinic.Doctor, error) {
	doc, ok := d.doctors[id]
	if !ok {
		return nil, clinic.ErrDoctorNotFound
	}
	return &doc, nil
}

type fakeRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	failCreate   bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{appointments: make(map[uuid.UUID]Appointment)}
}

func (r *fakeRepo) Create(_ context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.New("insert failed")
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	r.appointments[appt.ID] = appt
	return &appt, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, to Status, from ...Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	matched := false
	for _, s := range from {
		if appt.Status == s {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = to
	appt.UpdatedAt = time.Now()
	r.appointments[id] = appt
	return &appt, nil
}

func (r *fakeRepo) UpdateSlot(_ context.Context, id uuid.UUID, slotID uuid.UUID, startTime time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appointments[id]
	if !ok || appt.Status.Terminal() {
		return nil, ErrAppointmentNotFound
	}
	appt.SlotID = slotID
	appt.StartTime = startTime
	appt.UpdatedAt = time.Now()
	r.appointments[id] = appt
	return &appt, nil
}

func (r *fakeRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, appt := range r.appointments {
		if appt.PatientID == patientID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, appt := range r.appointments {
		if appt.DoctorID == doctorID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *fakeRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

// noopLocker runs the callback without any cross-process lock.
type noopLocker struct{}

func (noopLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// contendedLocker simulates another booker holding the slot lock.
type contendedLocker struct{}

func (contendedLocker) WithSlotLock(context.Context, uuid.UUID, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

type fixture struct {
	coord   *Coordinator
	repo    *fakeRepo
	ledger  *fakeLedger
	patient uuid.UUID
	doctor  uuid.UUID
	slotID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	patientID := uuid.New()
	doctorID := uuid.New()
	slotID := uuid.New()

	ledger := newFakeLedger()
	start := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	ledger.add(slot.Slot{
		ID:        slotID,
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    slot.StatusAvailable,
	})

	directory := &fakeDirectory{
		patients: map[uuid.UUID]clinic.Patient{patientID: {ID: patientID, Name: "Ana Souza"}},
		doctors:  map[uuid.UUID]clinic.Doctor{doctorID: {ID: doctorID, Name: "Dr. Lima", SlotMinutes: 30}},
	}

	repo := newFakeRepo()

	return &fixture{
		coord:   NewCoordinator(repo, ledger, directory, noopLocker{}, zap.NewNop()),
		repo:    repo,
		ledger:  ledger,
		patient: patientID,
		doctor:  doctorID,
		slotID:  slotID,
	}
}

func (f *fixture) addSlot(doctorID uuid.UUID, start time.Time) uuid.UUID {
	id := uuid.New()
	f.ledger.add(slot.Slot{
		ID:        id,
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    slot.StatusAvailable,
	})
	return id
}

func TestBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "first visit")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %s", appt.Status)
	}
	if appt.DoctorID != f.doctor || appt.SlotID != f.slotID {
		t.Fatal("appointment not linked to the reserved slot")
	}

	s, err := f.ledger.Get(ctx, f.slotID)
	if err != nil {
		t.Fatalf("Get slot error: %v", err)
	}
	if s.Status != slot.StatusReserved {
		t.Fatalf("expected slot reserved, got %s", s.Status)
	}
	if s.AppointmentID == nil || *s.AppointmentID != appt.ID {
		t.Fatal("slot not linked back to appointment")
	}

	types := f.repo.eventTypes()
	if len(types) != 1 || types[0] != EventAppointmentBooked {
		t.Fatalf("expected one booked event, got %v", types)
	}
}

func TestBookUnknownPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.coord.Book(context.Background(), uuid.New(), f.slotID, "")
	if !errors.Is(err, clinic.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if f.ledger.status(f.slotID) != slot.StatusAvailable {
		t.Fatal("slot must stay available")
	}
}

func TestBookSlotUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.coord.Book(ctx, f.patient, f.slotID, ""); err != nil {
		t.Fatalf("first Book error: %v", err)
	}
	if _, err := f.coord.Book(ctx, f.patient, f.slotID, ""); !errors.Is(err, slot.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestBookReleasesSlotWhenCreateFails(t *testing.T) {
	f := newFixture(t)
	f.repo.failCreate = true

	_, err := f.coord.Book(context.Background(), f.patient, f.slotID, "")
	if err == nil {
		t.Fatal("expected Book to fail")
	}
	if f.ledger.status(f.slotID) != slot.StatusAvailable {
		t.Fatalf("expected slot released after failed create, got %s", f.ledger.status(f.slotID))
	}
}

func TestBookLockContention(t *testing.T) {
	f := newFixture(t)
	f.coord = NewCoordinator(f.repo, f.ledger, &fakeDirectory{
		patients: map[uuid.UUID]clinic.Patient{f.patient: {ID: f.patient, Name: "Ana Souza"}},
	}, contendedLocker{}, zap.NewNop())

	_, err := f.coord.Book(context.Background(), f.patient, f.slotID, "")
	if !errors.Is(err, ErrSlotContended) {
		t.Fatalf("expected ErrSlotContended, got %v", err)
	}
	if f.ledger.status(f.slotID) != slot.StatusAvailable {
		t.Fatal("slot must stay available when the lock is contended")
	}
}

func TestConfirmThenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	confirmed, err := f.coord.Confirm(ctx, appt.ID)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", confirmed.Status)
	}

	completed, err := f.coord.Complete(ctx, appt.ID)
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
}

func TestConfirmTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if _, err := f.coord.Confirm(ctx, appt.ID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if _, err := f.coord.Confirm(ctx, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if _, err := f.coord.Complete(ctx, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	cancelled, err := f.coord.Cancel(ctx, appt.ID)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if f.ledger.status(f.slotID) != slot.StatusAvailable {
		t.Fatal("slot must be available after cancel")
	}

	// The freed slot can be booked again.
	rebooked, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("rebook error: %v", err)
	}
	if rebooked.ID == appt.ID {
		t.Fatal("rebooking must create a new appointment")
	}
}

func TestCancelCompletedAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if _, err := f.coord.Confirm(ctx, appt.ID); err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	if _, err := f.coord.Complete(ctx, appt.ID); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if _, err := f.coord.Cancel(ctx, appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	newStart := time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC)
	newSlotID := f.addSlot(f.doctor, newStart)

	moved, err := f.coord.Reschedule(ctx, appt.ID, newSlotID)
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if moved.SlotID != newSlotID {
		t.Fatal("appointment not repointed at new slot")
	}
	if !moved.StartTime.Equal(newStart) {
		t.Fatalf("start time not refreshed: %s", moved.StartTime)
	}
	if f.ledger.status(f.slotID) != slot.StatusAvailable {
		t.Fatal("old slot must be released")
	}
	if f.ledger.status(newSlotID) != slot.StatusReserved {
		t.Fatal("new slot must be reserved")
	}
}

func TestRescheduleToTakenSlotLeavesBookingUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	takenID := f.addSlot(f.doctor, time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC))
	if _, err := f.ledger.Reserve(ctx, takenID); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	if _, err := f.coord.Reschedule(ctx, appt.ID, takenID); !errors.Is(err, slot.ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}

	current, err := f.coord.Get(ctx, appt.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if current.SlotID != f.slotID {
		t.Fatal("appointment must stay on its original slot")
	}
	if f.ledger.status(f.slotID) != slot.StatusReserved {
		t.Fatal("original slot must stay reserved")
	}
}

func TestRescheduleDoctorMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	otherDoctorSlot := f.addSlot(uuid.New(), time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC))

	if _, err := f.coord.Reschedule(ctx, appt.ID, otherDoctorSlot); !errors.Is(err, ErrDoctorMismatch) {
		t.Fatalf("expected ErrDoctorMismatch, got %v", err)
	}
	if f.ledger.status(otherDoctorSlot) != slot.StatusAvailable {
		t.Fatal("mismatched slot must be released")
	}
	if f.ledger.status(f.slotID) != slot.StatusReserved {
		t.Fatal("original slot must stay reserved")
	}
}

func TestRescheduleCancelledAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.coord.Book(ctx, f.patient, f.slotID, "")
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if _, err := f.coord.Cancel(ctx, appt.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}

	newSlotID := f.addSlot(f.doctor, time.Date(2026, 9, 8, 10, 0, 0, 0, time.UTC))
	if _, err := f.coord.Reschedule(ctx, appt.ID, newSlotID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 20, 0},
		{-5, -3, 20, 0},
		{50, 10, 50, 10},
		{500, 0, 100, 0},
	}
	for _, tc := range cases {
		gotLimit, gotOffset := clampPage(tc.limit, tc.offset)
		if gotLimit != tc.wantLimit || gotOffset != tc.wantOffset {
			t.Fatalf("clampPage(%d, %d) = (%d, %d), want (%d, %d)",
				tc.limit, tc.offset, gotLimit, gotOffset, tc.wantLimit, tc.wantOffset)
		}
	}
}
