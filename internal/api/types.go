package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/carewell/clinic-scheduling/internal/appointment"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	SlotTime  string `json:"slot_time"` // RFC 3339
}

type RescheduleRequest struct {
	DoctorID string `json:"doctor_id"`
	SlotTime string `json:"slot_time"` // RFC 3339
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	SlotTime        time.Time  `json:"slot_time"`
	Status          string     `json:"status"`
	CheckedInAt     *time.Time `json:"checked_in_at,omitempty"`
	RescheduledFrom *uuid.UUID `json:"rescheduled_from,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type AvailabilityResponse struct {
	DoctorID uuid.UUID   `json:"doctor_id"`
	Date     string      `json:"date"`
	Slots    []time.Time `json:"slots"`
}

type ListAppointmentsResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		DoctorID:        a.DoctorID,
		SlotTime:        a.SlotTime,
		Status:          string(a.Status),
		CheckedInAt:     a.CheckedInAt,
		RescheduledFrom: a.RescheduledFrom,
		CreatedAt:       a.CreatedAt,
	}
}
