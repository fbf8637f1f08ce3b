package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/schedule"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventPatientCheckedIn       = "PATIENT_CHECKED_IN"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventReminderSent           = "REMINDER_SENT"
	EventBillRequested          = "BILL_REQUESTED"
)

var (
	ErrPastSlot        = errors.New("slot time is in the past")
	ErrSlotNotBookable = errors.New("slot time is not on the doctor's calendar")
	ErrAlreadyTerminal = errors.New("appointment is already cancelled or completed")
)

// IdempotencyStore remembers which appointment a booking key produced.
// Implemented by the redis store; nil disables the mechanism.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (uuid.UUID, error)
	Record(ctx context.Context, key string, appointmentID uuid.UUID) error
}

// AvailabilityInvalidator drops cached availability after a booking state
// change. Implemented by the schedule resolver; nil disables it.
type AvailabilityInvalidator interface {
	InvalidateDay(ctx context.Context, doctorID uuid.UUID, slotTime time.Time)
}

// Service is the booking coordinator: the single entry point for booking,
// rescheduling, cancellation and the front-desk check-in flow. It validates
// input against the slot calendar and delegates the reservation itself to the
// repository, whose unique index is the only race-safe boundary.
type Service struct {
	repo        Repository
	clock       schedule.Clock
	horizonDays int
	idem        IdempotencyStore
	invalidator AvailabilityInvalidator
	billing     BillingNotifier
	logger      zerolog.Logger
}

func NewService(repo Repository, clock schedule.Clock, horizonDays int, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		clock:       clock,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// WithIdempotency enables booking replay detection.
func (s *Service) WithIdempotency(store IdempotencyStore) *Service {
	s.idem = store
	return s
}

// WithInvalidator enables availability-cache invalidation on writes.
func (s *Service) WithInvalidator(inv AvailabilityInvalidator) *Service {
	s.invalidator = inv
	return s
}

// WithBilling sets the collaborator notified when a visit completes.
func (s *Service) WithBilling(b BillingNotifier) *Service {
	s.billing = b
	return s
}

// Book reserves slotTime with the doctor for the patient. The slot must be in
// the future and one the doctor's calendar would actually offer. A non-empty
// idemKey makes the call replayable: a repeated key returns the appointment
// the first call created.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, slotTime time.Time, idemKey string) (*Appointment, error) {
	if s.idem != nil && idemKey != "" {
		if prior, err := s.idem.Lookup(ctx, idemKey); err == nil {
			return s.repo.GetAppointmentByID(ctx, prior)
		}
	}

	if _, err := s.repo.GetPatientByID(ctx, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	if err := s.validateSlot(doctor, slotTime); err != nil {
		return nil, err
	}

	appt, err := s.repo.CreateScheduled(ctx, patientID, doctorID, slotTime, nil)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"patient_id": patientID.String(),
		"doctor_id":  doctorID.String(),
		"slot_time":  slotTime,
	})
	s.invalidate(ctx, doctorID, slotTime)

	if s.idem != nil && idemKey != "" {
		if err := s.idem.Record(ctx, idemKey, appt.ID); err != nil {
			s.logger.Warn().Err(err).Str("appointment_id", appt.ID.String()).Msg("idempotency record failed")
		}
	}

	return appt, nil
}

// Reschedule moves an appointment to a new doctor and slot. The new
// appointment is created before the old one is cancelled, so a ConflictError
// on the new slot leaves the original untouched. The patient briefly holds
// two scheduled appointments between the two writes; never zero.
func (s *Service) Reschedule(ctx context.Context, appointmentID, newDoctorID uuid.UUID, newSlotTime time.Time) (*Appointment, error) {
	old, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if old.Status != StatusScheduled {
		return nil, ErrAlreadyTerminal
	}

	doctor, err := s.repo.GetDoctorByID(ctx, newDoctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	if err := s.validateSlot(doctor, newSlotTime); err != nil {
		return nil, err
	}

	replacement, err := s.repo.CreateScheduled(ctx, old.PatientID, newDoctorID, newSlotTime, &old.ID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.UpdateStatus(ctx, old.ID, StatusScheduled, StatusCancelled); err != nil {
		// The old appointment changed under us, most likely a concurrent
		// cancel or check-in completion. The replacement stands either way.
		s.logger.Warn().Err(err).
			Str("appointment_id", old.ID.String()).
			Str("replacement_id", replacement.ID.String()).
			Msg("could not cancel original appointment during reschedule")
	} else {
		s.invalidate(ctx, old.DoctorID, old.SlotTime)
	}

	s.logEvent(ctx, replacement.ID, EventAppointmentRescheduled, map[string]any{
		"replaces":      old.ID.String(),
		"old_slot_time": old.SlotTime,
		"new_slot_time": newSlotTime,
		"doctor_id":     newDoctorID.String(),
	})
	s.invalidate(ctx, newDoctorID, newSlotTime)

	return replacement, nil
}

// Cancel releases an appointment's slot. Cancelling an appointment that is
// already cancelled or completed fails with ErrAlreadyTerminal so the caller
// can tell their cancel apart from someone else's.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.Status.Terminal() {
		return ErrAlreadyTerminal
	}

	if _, err := s.repo.UpdateStatus(ctx, appt.ID, StatusScheduled, StatusCancelled); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Lost the race: the row no longer has status scheduled.
			return ErrAlreadyTerminal
		}
		return fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{})
	s.invalidate(ctx, appt.DoctorID, appt.SlotTime)

	return nil
}

// CheckIn stamps the front-desk arrival flag on a scheduled appointment.
// Repeated check-ins are accepted and keep the first timestamp.
func (s *Service) CheckIn(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}
	if appt.CheckedInAt != nil {
		return appt, nil
	}

	updated, err := s.repo.SetCheckedIn(ctx, appt.ID, s.clock.Now())
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAlreadyTerminal
		}
		return nil, fmt.Errorf("check in appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventPatientCheckedIn, map[string]any{})

	return updated, nil
}

// Complete marks the visit done and asks billing to raise a bill. Check-in is
// not required first; walk-in completion is allowed.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, ErrAlreadyTerminal
	}

	updated, err := s.repo.UpdateStatus(ctx, appt.ID, StatusScheduled, StatusCompleted)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAlreadyTerminal
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCompleted, map[string]any{})
	s.invalidate(ctx, updated.DoctorID, updated.SlotTime)

	if s.billing != nil {
		if err := s.billing.AppointmentCompleted(ctx, updated); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", updated.ID.String()).Msg("billing notification failed")
		} else {
			s.logEvent(ctx, updated.ID, EventBillRequested, map[string]any{
				"patient_id": updated.PatientID.String(),
			})
		}
	}

	return updated, nil
}

// SendReminders records a REMINDER_SENT event for every scheduled appointment
// starting within lead of now that has none yet. Called periodically by the
// reminder worker.
func (s *Service) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := s.clock.Now()

	due, err := s.repo.FindNeedingReminder(ctx, now, now.Add(lead))
	if err != nil {
		return 0, fmt.Errorf("find appointments needing reminder: %w", err)
	}

	for _, appt := range due {
		s.logEvent(ctx, appt.ID, EventReminderSent, map[string]any{
			"patient_id": appt.PatientID.String(),
			"slot_time":  appt.SlotTime,
		})
	}

	return len(due), nil
}

// Get retrieves an appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListByPatient retrieves a patient's appointments ordered by slot time.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

// ListByDoctorAndDay retrieves a doctor's appointments for one day.
func (s *Service) ListByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	return s.repo.ListByDoctorAndDay(ctx, doctorID, dayStart, dayStart.Add(24*time.Hour))
}

func (s *Service) validateSlot(doctor *schedule.Doctor, slotTime time.Time) error {
	now := s.clock.Now()

	if !slotTime.After(now) {
		return ErrPastSlot
	}

	ok, err := schedule.OnCalendar(doctor.WorkingHours, doctor.SlotMinutes, slotTime, now, s.horizonDays)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSlotNotBookable, err)
	}
	if !ok {
		return ErrSlotNotBookable
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID, slotTime time.Time) {
	if s.invalidator != nil {
		s.invalidator.InvalidateDay(ctx, doctorID, slotTime)
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload failed")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log failed")
	}
}
