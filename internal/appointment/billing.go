package appointment

import (
	"context"

	"github.com/rs/zerolog"
)

// BillingNotifier is the billing subsystem's boundary: called when a visit
// completes so a bill can be raised. The real implementation lives with
// billing; this package only consumes the interface.
type BillingNotifier interface {
	AppointmentCompleted(ctx context.Context, appt *Appointment) error
}

type logBillingNotifier struct {
	logger zerolog.Logger
}

// NewLogBillingNotifier returns a notifier that just records the request.
// Used until the billing service is wired in.
func NewLogBillingNotifier(logger zerolog.Logger) BillingNotifier {
	return &logBillingNotifier{logger: logger}
}

func (n *logBillingNotifier) AppointmentCompleted(_ context.Context, appt *Appointment) error {
	n.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("patient_id", appt.PatientID.String()).
		Time("slot_time", appt.SlotTime).
		Msg("bill requested for completed visit")
	return nil
}
