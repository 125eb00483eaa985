package scheduling

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Book creates an appointment after checking that the practitioner's slot is
// free. Two bookings overlap when one starts before the other ends.
func (s *Service) Book(ctx context.Context, req *BookRequest) (*Appointment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if !req.EndsAt.After(req.StartsAt) {
		return nil, ErrInvalidSlot
	}

	taken, err := s.repo.HasOverlap(ctx, req.PractitionerID, req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotTaken
	}

	a := &Appointment{
		PatientID:      req.PatientID,
		PractitionerID: req.PractitionerID,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		Status:         AppointmentBooked,
		Reason:         req.Reason,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Cancel frees the slot. Completed appointments cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, AppointmentCancelled)
}

// Complete marks a booked appointment as done.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, AppointmentCompleted)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to AppointmentStatus) error {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != AppointmentBooked {
		return ErrNotBooked
	}
	return s.repo.UpdateStatus(ctx, id, to)
}

func (s *Service) Day(ctx context.Context, day time.Time, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDay(ctx, day, limit, offset)
}

func (s *Service) PractitionerSchedule(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	return s.repo.ListByPractitioner(ctx, practitionerID, from, to)
}
