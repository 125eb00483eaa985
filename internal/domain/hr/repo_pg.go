package hr

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/his/his/internal/tenancy"
)

type staffRepoPG struct{}

func NewStaffRepoPG() StaffRepository { return &staffRepoPG{} }

const staffCols = `id, user_id, full_name, position, department, hired_at, active, created_at`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.UserID, &s.FullName, &s.Position,
		&s.Department, &s.HiredAt, &s.Active, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStaffNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO staff (id, user_id, full_name, position, department, hired_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.FullName, s.Position, s.Department, s.HiredAt, s.Active)
	return err
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanStaff(q.QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id))
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `
		UPDATE staff SET full_name = $2, position = $3, department = $4, active = $5
		WHERE id = $1`,
		s.ID, s.FullName, s.Position, s.Department, s.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}

func (r *staffRepoPG) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM staff`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+staffCols+` FROM staff ORDER BY full_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var staff []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		staff = append(staff, s)
	}
	return staff, total, rows.Err()
}

type leaveRepoPG struct{}

func NewLeaveRepoPG() LeaveRepository { return &leaveRepoPG{} }

const leaveCols = `id, staff_id, type_code, start_date, end_date, days, status, reason, created_at`

func scanLeave(row pgx.Row) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := row.Scan(&lr.ID, &lr.StaffID, &lr.TypeCode, &lr.StartDate,
		&lr.EndDate, &lr.Days, &lr.Status, &lr.Reason, &lr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeaveNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *leaveRepoPG) CreateRequest(ctx context.Context, lr *LeaveRequest) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	if lr.ID == uuid.Nil {
		lr.ID = uuid.New()
	}
	_, err = q.Exec(ctx, `
		INSERT INTO leave_requests (id, staff_id, type_code, start_date, end_date, days, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		lr.ID, lr.StaffID, lr.TypeCode, lr.StartDate, lr.EndDate, lr.Days, lr.Status, lr.Reason)
	return err
}

func (r *leaveRepoPG) GetRequest(ctx context.Context, id uuid.UUID) (*LeaveRequest, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return scanLeave(q.QueryRow(ctx, `SELECT `+leaveCols+` FROM leave_requests WHERE id = $1`, id))
}

func (r *leaveRepoPG) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status LeaveStatus) error {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx,
		`UPDATE leave_requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeaveNotFound
	}
	return nil
}

func (r *leaveRepoPG) ListByStaff(ctx context.Context, staffID uuid.UUID) ([]*LeaveRequest, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `
		SELECT `+leaveCols+` FROM leave_requests
		WHERE staff_id = $1 ORDER BY start_date DESC`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LeaveRequest
	for rows.Next() {
		lr, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

func (r *leaveRepoPG) ListPending(ctx context.Context, limit, offset int) ([]*LeaveRequest, int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM leave_requests WHERE status = 'pending'`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT `+leaveCols+` FROM leave_requests
		WHERE status = 'pending' ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*LeaveRequest
	for rows.Next() {
		lr, err := scanLeave(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, lr)
	}
	return out, total, rows.Err()
}

func (r *leaveRepoPG) ApprovedDays(ctx context.Context, staffID uuid.UUID, typeCode string, ref time.Time) (int, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return 0, err
	}
	var days int
	err = q.QueryRow(ctx, `
		SELECT COALESCE(SUM(days), 0) FROM leave_requests
		WHERE staff_id = $1 AND type_code = $2 AND status = 'approved'
		  AND EXTRACT(YEAR FROM start_date) = $3`,
		staffID, typeCode, ref.Year()).Scan(&days)
	return days, err
}

func (r *leaveRepoPG) GetType(ctx context.Context, code string) (*LeaveType, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	var lt LeaveType
	err = q.QueryRow(ctx,
		`SELECT code, name, days_per_year FROM leave_types WHERE code = $1`, code).
		Scan(&lt.Code, &lt.Name, &lt.DaysPerYear)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeaveTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func (r *leaveRepoPG) ListTypes(ctx context.Context) ([]*LeaveType, error) {
	q, err := tenancy.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, `SELECT code, name, days_per_year FROM leave_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LeaveType
	for rows.Next() {
		var lt LeaveType
		if err := rows.Scan(&lt.Code, &lt.Name, &lt.DaysPerYear); err != nil {
			return nil, err
		}
		out = append(out, &lt)
	}
	return out, rows.Err()
}
