// Package scheduling manages outpatient appointments. Overlap checks are
// scoped per practitioner; different practitioners can see patients in
// parallel.
package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentBooked    AppointmentStatus = "booked"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

type Appointment struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	PatientID      uuid.UUID         `db:"patient_id" json:"patient_id"`
	PractitionerID uuid.UUID         `db:"practitioner_id" json:"practitioner_id"`
	StartsAt       time.Time         `db:"starts_at" json:"starts_at"`
	EndsAt         time.Time         `db:"ends_at" json:"ends_at"`
	Status         AppointmentStatus `db:"status" json:"status"`
	Reason         *string           `db:"reason" json:"reason,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

type BookRequest struct {
	PatientID      uuid.UUID `json:"patient_id" validate:"required"`
	PractitionerID uuid.UUID `json:"practitioner_id" validate:"required"`
	StartsAt       time.Time `json:"starts_at" validate:"required"`
	EndsAt         time.Time `json:"ends_at" validate:"required"`
	Reason         *string   `json:"reason,omitempty"`
}
