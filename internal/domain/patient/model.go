// Package patient manages the patient register and inpatient admissions for
// a single hospital.
package patient

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	MRN       string     `db:"mrn" json:"mrn"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Gender    string     `db:"gender" json:"gender"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone     *string    `db:"phone" json:"phone,omitempty"`
	Address   *string    `db:"address" json:"address,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

type AdmissionStatus string

const (
	AdmissionAdmitted   AdmissionStatus = "admitted"
	AdmissionDischarged AdmissionStatus = "discharged"
)

type Admission struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	PatientID    uuid.UUID       `db:"patient_id" json:"patient_id"`
	Ward         string          `db:"ward" json:"ward"`
	Bed          string          `db:"bed" json:"bed"`
	Reason       string          `db:"reason" json:"reason"`
	Status       AdmissionStatus `db:"status" json:"status"`
	AdmittedAt   time.Time       `db:"admitted_at" json:"admitted_at"`
	DischargedAt *time.Time      `db:"discharged_at" json:"discharged_at,omitempty"`
}

type RegisterPatientRequest struct {
	FirstName string  `json:"first_name" validate:"required,min=1,max=80"`
	LastName  string  `json:"last_name" validate:"required,min=1,max=80"`
	Gender    string  `json:"gender" validate:"required,oneof=male female other unknown"`
	BirthDate *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
}

type AdmitRequest struct {
	Ward   string `json:"ward" validate:"required"`
	Bed    string `json:"bed" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}
