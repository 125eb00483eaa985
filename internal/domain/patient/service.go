package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	patients   Repository
	admissions AdmissionRepository
	validate   *validator.Validate
}

func NewService(patients Repository, admissions AdmissionRepository) *Service {
	return &Service{patients: patients, admissions: admissions, validate: validator.New()}
}

// Register creates a patient with a sequential medical record number of the
// form MRN-000001. The number is unique within the hospital; two hospitals
// can hold the same MRN because each has its own database and sequence.
func (s *Service) Register(ctx context.Context, req *RegisterPatientRequest) (*Patient, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	seq, err := s.patients.NextMRNSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserve mrn: %w", err)
	}

	p := &Patient{
		MRN:       fmt.Sprintf("MRN-%06d", seq),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		Phone:     req.Phone,
		Address:   req.Address,
	}
	if req.BirthDate != nil {
		bd, err := time.Parse("2006-01-02", *req.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("parse birth date: %w", err)
		}
		p.BirthDate = &bd
	}

	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, mrn)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("patient name is required")
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.Search(ctx, query, limit, offset)
}

// Admit opens an admission for a patient. A patient can hold at most one open
// admission at a time.
func (s *Service) Admit(ctx context.Context, patientID uuid.UUID, req *AdmitRequest) (*Admission, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	if _, err := s.admissions.GetOpenByPatient(ctx, patientID); err == nil {
		return nil, ErrAlreadyAdmitted
	} else if !errors.Is(err, ErrNoOpenAdmission) {
		return nil, err
	}

	a := &Admission{
		PatientID: patientID,
		Ward:      req.Ward,
		Bed:       req.Bed,
		Reason:    req.Reason,
		Status:    AdmissionAdmitted,
		AdmittedAt: time.Now(),
	}
	if err := s.admissions.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Discharge closes the patient's open admission.
func (s *Service) Discharge(ctx context.Context, patientID uuid.UUID) error {
	a, err := s.admissions.GetOpenByPatient(ctx, patientID)
	if err != nil {
		return err
	}
	return s.admissions.Discharge(ctx, a.ID)
}

func (s *Service) Admissions(ctx context.Context, patientID uuid.UUID) ([]*Admission, error) {
	return s.admissions.ListByPatient(ctx, patientID)
}

func (s *Service) OpenAdmissions(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	return s.admissions.ListOpen(ctx, limit, offset)
}
