package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("patient not found")
	ErrAlreadyAdmitted = errors.New("patient already has an open admission")
	ErrNoOpenAdmission = errors.New("patient has no open admission")
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByMRN(ctx context.Context, mrn string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// Search matches name fragments and exact MRNs.
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	// NextMRNSeq reserves the next value of the MRN sequence.
	NextMRNSeq(ctx context.Context) (int64, error)
}

type AdmissionRepository interface {
	Create(ctx context.Context, a *Admission) error
	GetOpenByPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error)
	Discharge(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Admission, error)
	ListOpen(ctx context.Context, limit, offset int) ([]*Admission, int, error)
}
