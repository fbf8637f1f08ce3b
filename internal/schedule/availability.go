package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DoctorSource looks up a doctor's scheduling template.
type DoctorSource interface {
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
}

// BookedSource lists the slot times held by scheduled appointments in
// [from, to).
type BookedSource interface {
	ListScheduledSlotTimes(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]time.Time, error)
}

// AvailabilityCache is implemented by the redis cache. A nil cache disables
// caching entirely.
type AvailabilityCache interface {
	Get(ctx context.Context, doctorID uuid.UUID, day string) ([]time.Time, error)
	Set(ctx context.Context, doctorID uuid.UUID, day string, slots []time.Time) error
	Invalidate(ctx context.Context, doctorID uuid.UUID, day string) error
}

// Resolver computes the bookable slots for a doctor and day: the slot
// calendar minus slots held by scheduled appointments.
//
// The result is advisory. A slot returned here can be taken by another
// client before the caller books it; the ledger's unique index is the only
// enforcement point.
type Resolver struct {
	doctors     DoctorSource
	booked      BookedSource
	cache       AvailabilityCache
	clock       Clock
	horizonDays int
	logger      zerolog.Logger
}

func NewResolver(doctors DoctorSource, booked BookedSource, cache AvailabilityCache, clock Clock, horizonDays int, logger zerolog.Logger) *Resolver {
	return &Resolver{
		doctors:     doctors,
		booked:      booked,
		cache:       cache,
		clock:       clock,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// GetAvailable returns the ordered free slot start times for doctorID on day.
// An empty result is valid; an unknown doctor is an error from the source.
func (r *Resolver) GetAvailable(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]time.Time, error) {
	doctor, err := r.doctors.GetDoctorByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	dayKey := FormatDay(day)

	if r.cache != nil {
		if slots, err := r.cache.Get(ctx, doctorID, dayKey); err == nil {
			return slots, nil
		}
	}

	now := r.clock.Now()
	all, err := GenerateSlots(doctor.WorkingHours, doctor.SlotMinutes, day, now, r.horizonDays)
	if err != nil {
		return nil, err
	}

	dayStart := day.UTC().Truncate(24 * time.Hour)
	taken, err := r.booked.ListScheduledSlotTimes(ctx, doctorID, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list scheduled slots: %w", err)
	}

	occupied := make(map[int64]struct{}, len(taken))
	for _, t := range taken {
		occupied[t.Unix()] = struct{}{}
	}

	free := make([]time.Time, 0, len(all))
	for _, s := range all {
		if _, held := occupied[s.Unix()]; held {
			continue
		}
		free = append(free, s)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, doctorID, dayKey, free); err != nil {
			r.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Str("day", dayKey).Msg("availability cache write failed")
		}
	}

	return free, nil
}

// InvalidateDay drops the cached availability for doctorID on the day
// containing slotTime. Best effort; a stale entry only lives until its TTL.
func (r *Resolver) InvalidateDay(ctx context.Context, doctorID uuid.UUID, slotTime time.Time) {
	if r.cache == nil {
		return
	}
	dayKey := FormatDay(slotTime.UTC().Truncate(24 * time.Hour))
	if err := r.cache.Invalidate(ctx, doctorID, dayKey); err != nil {
		r.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Str("day", dayKey).Msg("availability cache invalidation failed")
	}
}
