package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further status transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment is a reservation of exactly one slot for one patient.
//
// CheckedInAt is the front-desk visit flag and sits outside the status
// lifecycle. RescheduledFrom links a rebooked appointment to the one it
// replaced.
type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	DoctorID        uuid.UUID
	SlotTime        time.Time
	Status          Status
	CheckedInAt     *time.Time
	RescheduledFrom *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
