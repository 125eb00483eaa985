package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/his/his/internal/tenancy"
)

type repoPG struct{}

func NewRepoPG() Repository { return &repoPG{} }

const appointmentCols = `id, patient_id, practitioner_id, starts_at, ends_at, status, reason, created_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PractitionerID, &a.StartsAt,
		&a.EndsAt, &a.Status, &a.Reason, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, practitioner_id, starts_at, ends_at, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.PatientID, a.PractitionerID, a.StartsAt, a.EndsAt, a.Status, a.Reason)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanAppointment(q.QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx,
		`UPDATE appointments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) HasOverlap(ctx context.Context, practitionerID uuid.UUID, start, end time.Time) (bool, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return false, err
	}
	var overlap bool
	err = q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE practitioner_id = $1 AND status = 'booked'
			  AND starts_at < $3 AND ends_at > $2
		)`, practitionerID, start, end).Scan(&overlap)
	return overlap, err
}

func (r *repoPG) ListByDay(ctx context.Context, day time.Time, limit, offset int) ([]*Appointment, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var total int
	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE starts_at >= $1 AND starts_at < $2`, dayStart, dayEnd).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE starts_at >= $1 AND starts_at < $2
		ORDER BY starts_at LIMIT $3 OFFSET $4`, dayStart, dayEnd, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *repoPG) ListByPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+appointmentCols+` FROM appointments
		WHERE practitioner_id = $1 AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
