package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/schedule"
)

// 2025-06-10 is a Tuesday; the test doctor works Tue 09:00-10:00 in 30-minute
// slots.
var (
	testNow  = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	tuesday  = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	nineAM   = tuesday.Add(9 * time.Hour)
	nine30AM = tuesday.Add(9*time.Hour + 30*time.Minute)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// memRepo is an in-memory ledger. Its mutex plays the role the partial unique
// index plays in Postgres: existence check and insert are one critical
// section.
type memRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
	doctors  map[uuid.UUID]*schedule.Doctor
	appts    map[uuid.UUID]*Appointment
	events   []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{
		patients: make(map[uuid.UUID]*Patient),
		doctors:  make(map[uuid.UUID]*schedule.Doctor),
		appts:    make(map[uuid.UUID]*Appointment),
	}
}

func (r *memRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (r *memRepo) GetDoctorByID(_ context.Context, id uuid.UUID) (*schedule.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.PatientID == patientID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) ListByDoctorAndDay(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID && !a.SlotTime.Before(from) && a.SlotTime.Before(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) ListScheduledSlotTimes(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Status == StatusScheduled &&
			!a.SlotTime.Before(from) && a.SlotTime.Before(to) {
			out = append(out, a.SlotTime)
		}
	}
	return out, nil
}

func (r *memRepo) CreateScheduled(_ context.Context, patientID, doctorID uuid.UUID, slotTime time.Time, rescheduledFrom *uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Status == StatusScheduled && a.SlotTime.Equal(slotTime) {
			return nil, ErrSlotTaken
		}
	}

	a := &Appointment{
		ID:              uuid.New(),
		PatientID:       patientID,
		DoctorID:        doctorID,
		SlotTime:        slotTime,
		Status:          StatusScheduled,
		RescheduledFrom: rescheduledFrom,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	r.appts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *memRepo) SetCheckedIn(_ context.Context, id uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != StatusScheduled {
		return nil, ErrAppointmentNotFound
	}
	a.CheckedInAt = &at
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *memRepo) FindNeedingReminder(_ context.Context, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reminded := make(map[uuid.UUID]bool)
	for _, ev := range r.events {
		if ev.EventType == EventReminderSent && ev.AppointmentID != nil {
			reminded[*ev.AppointmentID] = true
		}
	}

	var out []Appointment
	for _, a := range r.appts {
		if a.Status == StatusScheduled && !a.SlotTime.Before(from) && a.SlotTime.Before(to) && !reminded[a.ID] {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepo) countScheduled(doctorID uuid.UUID, slotTime time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Status == StatusScheduled && a.SlotTime.Equal(slotTime) {
			n++
		}
	}
	return n
}

func (r *memRepo) eventTypes(appointmentID uuid.UUID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.AppointmentID != nil && *ev.AppointmentID == appointmentID {
			out = append(out, ev.EventType)
		}
	}
	return out
}

type memIdemStore struct {
	mu      sync.Mutex
	entries map[string]uuid.UUID
}

func newMemIdemStore() *memIdemStore {
	return &memIdemStore{entries: make(map[string]uuid.UUID)}
}

func (s *memIdemStore) Lookup(_ context.Context, key string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.entries[key]
	if !ok {
		return uuid.Nil, errors.New("not found")
	}
	return id, nil
}

func (s *memIdemStore) Record(_ context.Context, key string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		s.entries[key] = id
	}
	return nil
}

type countingBilling struct {
	mu    sync.Mutex
	calls int
}

func (b *countingBilling) AppointmentCompleted(_ context.Context, _ *Appointment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return nil
}

type testEnv struct {
	repo    *memRepo
	clock   *fakeClock
	svc     *Service
	doctor  uuid.UUID
	patient uuid.UUID
}

func newTestEnv() *testEnv {
	repo := newMemRepo()
	clock := &fakeClock{now: testNow}

	doctorID := uuid.New()
	repo.doctors[doctorID] = &schedule.Doctor{
		ID:          doctorID,
		Name:        "Dr. Grant",
		SlotMinutes: 30,
		WorkingHours: schedule.WeeklyTemplate{
			{Weekday: time.Tuesday, Start: "09:00", End: "10:00"},
		},
	}

	patientID := uuid.New()
	repo.patients[patientID] = &Patient{ID: patientID, Name: "Alice"}

	svc := NewService(repo, clock, 60, zerolog.Nop())

	return &testEnv{repo: repo, clock: clock, svc: svc, doctor: doctorID, patient: patientID}
}

func (e *testEnv) addPatient() uuid.UUID {
	id := uuid.New()
	e.repo.mu.Lock()
	e.repo.patients[id] = &Patient{ID: id, Name: "Patient"}
	e.repo.mu.Unlock()
	return id
}

// -- Book --

func TestBook(t *testing.T) {
	e := newTestEnv()

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("expected status scheduled, got %s", appt.Status)
	}
	if !appt.SlotTime.Equal(nineAM) {
		t.Errorf("expected slot %v, got %v", nineAM, appt.SlotTime)
	}

	types := e.repo.eventTypes(appt.ID)
	if len(types) != 1 || types[0] != EventAppointmentBooked {
		t.Errorf("expected a single booked event, got %v", types)
	}
}

func TestBook_Conflict(t *testing.T) {
	e := newTestEnv()

	if _, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, ""); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	other := e.addPatient()
	_, err := e.svc.Book(context.Background(), other, e.doctor, nineAM, "")
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken, got %v", err)
	}

	if n := e.repo.countScheduled(e.doctor, nineAM); n != 1 {
		t.Errorf("invariant violated: %d scheduled appointments on one slot", n)
	}
}

func TestBook_PastSlot(t *testing.T) {
	e := newTestEnv()
	e.clock.Set(nineAM.Add(time.Hour))

	_, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if !errors.Is(err, ErrPastSlot) {
		t.Errorf("expected ErrPastSlot, got %v", err)
	}
}

func TestBook_OffCalendarSlot(t *testing.T) {
	e := newTestEnv()

	// 09:17 is inside working hours but not on the slot grid.
	_, err := e.svc.Book(context.Background(), e.patient, e.doctor, tuesday.Add(9*time.Hour+17*time.Minute), "")
	if !errors.Is(err, ErrSlotNotBookable) {
		t.Errorf("expected ErrSlotNotBookable, got %v", err)
	}

	// Wednesday is not a working day at all.
	_, err = e.svc.Book(context.Background(), e.patient, e.doctor, tuesday.Add(24*time.Hour+9*time.Hour), "")
	if !errors.Is(err, ErrSlotNotBookable) {
		t.Errorf("expected ErrSlotNotBookable, got %v", err)
	}
}

func TestBook_UnknownPatient(t *testing.T) {
	e := newTestEnv()

	_, err := e.svc.Book(context.Background(), uuid.New(), e.doctor, nineAM, "")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestBook_UnknownDoctor(t *testing.T) {
	e := newTestEnv()

	_, err := e.svc.Book(context.Background(), e.patient, uuid.New(), nineAM, "")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	e := newTestEnv()

	const attempts = 50
	patients := make([]uuid.UUID, attempts)
	for i := range patients {
		patients[i] = e.addPatient()
	}

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.svc.Book(context.Background(), patients[i], e.doctor, nineAM, "")
		}(i)
	}
	wg.Wait()

	successes, conflicts := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 || conflicts != attempts-1 {
		t.Errorf("expected exactly 1 success and %d conflicts, got %d/%d", attempts-1, successes, conflicts)
	}
	if n := e.repo.countScheduled(e.doctor, nineAM); n != 1 {
		t.Errorf("invariant violated: %d scheduled appointments on one slot", n)
	}
}

func TestBook_IdempotentReplay(t *testing.T) {
	e := newTestEnv()
	e.svc.WithIdempotency(newMemIdemStore())

	first, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replay, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "key-1")
	if err != nil {
		t.Fatalf("replay should return the original booking, got %v", err)
	}
	if replay.ID != first.ID {
		t.Errorf("replay returned a different appointment: %s vs %s", replay.ID, first.ID)
	}
	if n := e.repo.countScheduled(e.doctor, nineAM); n != 1 {
		t.Errorf("replay created a duplicate: %d scheduled", n)
	}
}

// -- Reschedule --

func TestReschedule(t *testing.T) {
	e := newTestEnv()

	old, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replacement, err := e.svc.Reschedule(context.Background(), old.ID, e.doctor, nine30AM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if replacement.RescheduledFrom == nil || *replacement.RescheduledFrom != old.ID {
		t.Errorf("replacement should link back to %s", old.ID)
	}
	if replacement.Status != StatusScheduled {
		t.Errorf("expected replacement scheduled, got %s", replacement.Status)
	}

	reloaded, err := e.svc.Get(context.Background(), old.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.Status != StatusCancelled {
		t.Errorf("expected original cancelled, got %s", reloaded.Status)
	}
}

func TestReschedule_ConflictLeavesOriginal(t *testing.T) {
	e := newTestEnv()

	mine, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := e.addPatient()
	if _, err := e.svc.Book(context.Background(), other, e.doctor, nine30AM, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = e.svc.Reschedule(context.Background(), mine.ID, e.doctor, nine30AM)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	reloaded, err := e.svc.Get(context.Background(), mine.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reloaded.Status != StatusScheduled || !reloaded.SlotTime.Equal(nineAM) {
		t.Errorf("original must be untouched after failed reschedule, got %s at %v", reloaded.Status, reloaded.SlotTime)
	}
}

func TestReschedule_TerminalAppointment(t *testing.T) {
	e := newTestEnv()

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.svc.Cancel(context.Background(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = e.svc.Reschedule(context.Background(), appt.ID, e.doctor, nine30AM)
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestReschedule_NotFound(t *testing.T) {
	e := newTestEnv()

	_, err := e.svc.Reschedule(context.Background(), uuid.New(), e.doctor, nine30AM)
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

// -- Cancel --

func TestCancel(t *testing.T) {
	e := newTestEnv()

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.svc.Cancel(context.Background(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := e.repo.countScheduled(e.doctor, nineAM); n != 0 {
		t.Errorf("cancelled appointment still occupies the slot")
	}

	// The slot is free again for someone else.
	other := e.addPatient()
	if _, err := e.svc.Book(context.Background(), other, e.doctor, nineAM, ""); err != nil {
		t.Errorf("slot should be bookable after cancel: %v", err)
	}
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	e := newTestEnv()

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.svc.Cancel(context.Background(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.svc.Cancel(context.Background(), appt.ID); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal on second cancel, got %v", err)
	}
}

func TestCancel_NotFound(t *testing.T) {
	e := newTestEnv()

	if err := e.svc.Cancel(context.Background(), uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("expected ErrAppointmentNotFound, got %v", err)
	}
}

// -- Check-in and completion --

func TestCheckIn(t *testing.T) {
	e := newTestEnv()

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checked, err := e.svc.CheckIn(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checked.CheckedInAt == nil {
		t.Fatal("expected checked_in_at to be set")
	}
	if checked.Status != StatusScheduled {
		t.Errorf("check-in must not change status, got %s", checked.Status)
	}

	// Second check-in keeps the first timestamp.
	again, err := e.svc.CheckIn(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.CheckedInAt.Equal(*checked.CheckedInAt) {
		t.Errorf("repeated check-in moved the timestamp")
	}
}

func TestCheckIn_Terminal(t *testing.T) {
	e := newTestEnv()

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.svc.Cancel(context.Background(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := e.svc.CheckIn(context.Background(), appt.ID); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal, got %v", err)
	}
}

func TestComplete_TriggersBilling(t *testing.T) {
	e := newTestEnv()
	billing := &countingBilling{}
	e.svc.WithBilling(billing)

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, err := e.svc.Complete(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected status completed, got %s", done.Status)
	}
	if billing.calls != 1 {
		t.Errorf("expected one billing notification, got %d", billing.calls)
	}

	var billed bool
	for _, ev := range e.repo.eventTypes(appt.ID) {
		if ev == EventBillRequested {
			billed = true
		}
	}
	if !billed {
		t.Error("expected a BILL_REQUESTED event")
	}
}

func TestComplete_Terminal(t *testing.T) {
	e := newTestEnv()

	appt, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.svc.Complete(context.Background(), appt.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := e.svc.Complete(context.Background(), appt.ID); !errors.Is(err, ErrAlreadyTerminal) {
		t.Errorf("expected ErrAlreadyTerminal on double completion, got %v", err)
	}
}

// -- Reminders --

func TestSendReminders(t *testing.T) {
	e := newTestEnv()

	near, err := e.svc.Book(context.Background(), e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Day before the visit: the appointment falls inside the 24h lead.
	e.clock.Set(tuesday.Add(-10 * time.Hour))

	sent, err := e.svc.SendReminders(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected 1 reminder, got %d", sent)
	}

	// Re-running must not remind twice.
	sent, err = e.svc.SendReminders(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sent != 0 {
		t.Errorf("expected no repeat reminders, got %d", sent)
	}

	var reminded bool
	for _, ev := range e.repo.eventTypes(near.ID) {
		if ev == EventReminderSent {
			reminded = true
		}
	}
	if !reminded {
		t.Error("expected a REMINDER_SENT event")
	}
}

// -- End-to-end scenario --

// The front-desk walkthrough: availability shrinks on booking, a second
// booking of the same slot conflicts, rescheduling frees the old slot.
func TestBookingScenario(t *testing.T) {
	e := newTestEnv()
	resolver := schedule.NewResolver(e.repo, e.repo, nil, e.clock, 60, zerolog.Nop())
	ctx := context.Background()

	avail, err := resolver.GetAvailable(ctx, e.doctor, tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(avail) != 2 || !avail[0].Equal(nineAM) || !avail[1].Equal(nine30AM) {
		t.Fatalf("expected [09:00 09:30], got %v", avail)
	}

	booked, err := e.svc.Book(ctx, e.patient, e.doctor, nineAM, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	avail, err = resolver.GetAvailable(ctx, e.doctor, tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(avail) != 1 || !avail[0].Equal(nine30AM) {
		t.Fatalf("expected [09:30] after booking, got %v", avail)
	}

	other := e.addPatient()
	if _, err := e.svc.Book(ctx, other, e.doctor, nineAM, ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected conflict for second 09:00 booking, got %v", err)
	}

	replacement, err := e.svc.Reschedule(ctx, booked.ID, e.doctor, nine30AM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replacement.Status != StatusScheduled || !replacement.SlotTime.Equal(nine30AM) {
		t.Fatalf("expected scheduled replacement at 09:30, got %s at %v", replacement.Status, replacement.SlotTime)
	}

	old, err := e.svc.Get(ctx, booked.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if old.Status != StatusCancelled {
		t.Fatalf("expected original cancelled, got %s", old.Status)
	}

	avail, err = resolver.GetAvailable(ctx, e.doctor, tuesday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(avail) != 1 || !avail[0].Equal(nineAM) {
		t.Fatalf("expected [09:00] after reschedule, got %v", avail)
	}
}
