package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-scheduling/internal/apperr"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
)

// Doctors is the part of the identity store the registry needs.
type Doctors interface {
	GetDoctorByID(ctx context.Context, id int64) (*identity.Doctor, error)
}

type Service struct {
	repo    Repository
	doctors Doctors
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, doctors Doctors, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		doctors: doctors,
		log:     log.With().Str("component", "availability").Logger(),
		now:     time.Now,
	}
}

func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (s *Service) requireDoctor(ctx context.Context, doctorID int64) error {
	if _, err := s.doctors.GetDoctorByID(ctx, doctorID); err != nil {
		if errors.Is(err, identity.ErrDoctorNotFound) {
			return apperr.NotFound("doctor %d not found", doctorID)
		}
		return fmt.Errorf("load doctor %d: %w", doctorID, err)
	}
	return nil
}

// AddAvailableSlot registers a free time for a doctor.
func (s *Service) AddAvailableSlot(ctx context.Context, doctorID int64, at time.Time) (*Slot, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	if at.IsZero() {
		return nil, apperr.Validation("available time is required")
	}

	at = normalize(at)
	slot, err := s.repo.Create(ctx, doctorID, at)
	if err != nil {
		if errors.Is(err, ErrSlotExists) {
			return nil, apperr.Conflict("doctor %d already has a slot at %s", doctorID, at.Format(time.RFC3339))
		}
		return nil, err
	}

	s.log.Info().
		Int64("doctor_id", doctorID).
		Time("available_time", at).
		Msg("slot added")

	return slot, nil
}

// ListAvailableSlots returns the doctor's slots after the given instant in
// ascending order.
func (s *Service) ListAvailableSlots(ctx context.Context, doctorID int64, after time.Time) ([]Slot, error) {
	if err := s.requireDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	slots, err := s.repo.ListAfter(ctx, doctorID, normalize(after))
	if err != nil {
		return nil, fmt.Errorf("list slots of doctor %d: %w", doctorID, err)
	}
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}

// UpcomingSlots is ListAvailableSlots from the current instant.
func (s *Service) UpcomingSlots(ctx context.Context, doctorID int64) ([]Slot, error) {
	return s.ListAvailableSlots(ctx, doctorID, s.now())
}

// RemoveDoctorSlots deletes every slot the doctor owns. Called before the
// doctor record itself is removed.
func (s *Service) RemoveDoctorSlots(ctx context.Context, doctorID int64) (int64, error) {
	n, err := s.repo.DeleteByDoctor(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int64("doctor_id", doctorID).Int64("removed", n).Msg("doctor slots removed")
	return n, nil
}

// PrunePastSlots drops slots older than before.
func (s *Service) PrunePastSlots(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, normalize(before))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("removed", n).Time("before", before).Msg("pruned past slots")
	}
	return n, nil
}
