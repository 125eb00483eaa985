package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrSlotTaken    = errors.New("practitioner already booked for this slot")
	ErrInvalidSlot  = errors.New("appointment end must be after start")
	ErrNotBooked    = errors.New("appointment is not in booked state")
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) error
	// HasOverlap reports whether the practitioner has a booked appointment
	// intersecting [start, end).
	HasOverlap(ctx context.Context, practitionerID uuid.UUID, start, end time.Time) (bool, error)
	ListByDay(ctx context.Context, day time.Time, limit, offset int) ([]*Appointment, int, error)
	ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]*Appointment, error)
}
