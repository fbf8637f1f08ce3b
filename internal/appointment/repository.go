package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/carewell/clinic-scheduling/internal/schedule"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken means another scheduled appointment already holds the
	// (doctor, slot_time) pair. Callers recover by picking a different slot;
	// it is never retried here.
	ErrSlotTaken = errors.New("slot already taken")
)

// Repository is the appointment ledger: all DB interactions the service
// needs. CreateScheduled is the sole enforcement point of the one-scheduled-
// appointment-per-slot invariant and must be atomic against concurrent
// creates for the same (doctor, slot_time).
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*schedule.Doctor, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// For the availability resolver
	ListScheduledSlotTimes(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)

	// CreateScheduled inserts a new scheduled appointment, or fails with
	// ErrSlotTaken when the slot is held.
	CreateScheduled(ctx context.Context, patientID, doctorID uuid.UUID, slotTime time.Time, rescheduledFrom *uuid.UUID) (*Appointment, error)

	// UpdateStatus transitions id from one status to another. It fails with
	// ErrAppointmentNotFound when no row matches id with status from, which
	// lets callers detect a lost race.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// SetCheckedIn stamps the front-desk check-in flag on a scheduled
	// appointment.
	SetCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (*Appointment, error)

	// Reminder worker
	FindNeedingReminder(ctx context.Context, from, to time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
