package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/his/his/internal/tenancy"
)

type repoPG struct{}

func NewRepoPG() Repository { return &repoPG{} }

const patientCols = `id, mrn, first_name, last_name, gender, birth_date, phone, address, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.MRN, &p.FirstName, &p.LastName, &p.Gender,
		&p.BirthDate, &p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO patients (id, mrn, first_name, last_name, gender, birth_date, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.MRN, p.FirstName, p.LastName, p.Gender, p.BirthDate, p.Phone, p.Address)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanPatient(q.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByMRN(ctx context.Context, mrn string) (*Patient, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanPatient(q.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE mrn = $1`, mrn))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE patients
		SET first_name = $2, last_name = $3, gender = $4, birth_date = $5,
			phone = $6, address = $7, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Gender, p.BirthDate, p.Phone, p.Address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	pattern := "%" + query + "%"
	var total int
	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM patients
		WHERE mrn = $1 OR first_name ILIKE $2 OR last_name ILIKE $2`,
		query, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE mrn = $1 OR first_name ILIKE $2 OR last_name ILIKE $2
		ORDER BY last_name, first_name LIMIT $3 OFFSET $4`,
		query, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *repoPG) NextMRNSeq(ctx context.Context) (int64, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.QueryRow(ctx, `SELECT nextval('patient_mrn_seq')`).Scan(&n)
	return n, err
}

type admissionRepoPG struct{}

func NewAdmissionRepoPG() AdmissionRepository { return &admissionRepoPG{} }

const admissionCols = `id, patient_id, ward, bed, reason, status, admitted_at, discharged_at`

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.PatientID, &a.Ward, &a.Bed, &a.Reason,
		&a.Status, &a.AdmittedAt, &a.DischargedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOpenAdmission
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *admissionRepoPG) Create(ctx context.Context, a *Admission) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO admissions (id, patient_id, ward, bed, reason, status)
		VALUES ($1, $2, $3, $4, $5, 'admitted')`,
		a.ID, a.PatientID, a.Ward, a.Bed, a.Reason)
	return err
}

func (r *admissionRepoPG) GetOpenByPatient(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanAdmission(q.QueryRow(ctx, `
		SELECT `+admissionCols+` FROM admissions
		WHERE patient_id = $1 AND status = 'admitted'`, patientID))
}

func (r *admissionRepoPG) Discharge(ctx context.Context, id uuid.UUID) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE admissions SET status = 'discharged', discharged_at = NOW()
		WHERE id = $1 AND status = 'admitted'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoOpenAdmission
	}
	return nil
}

func (r *admissionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Admission, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+admissionCols+` FROM admissions
		WHERE patient_id = $1 ORDER BY admitted_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *admissionRepoPG) ListOpen(ctx context.Context, limit, offset int) ([]*Admission, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM admissions WHERE status = 'admitted'`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+admissionCols+` FROM admissions
		WHERE status = 'admitted' ORDER BY admitted_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
