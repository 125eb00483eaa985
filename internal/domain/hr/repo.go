package hr

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStaffNotFound     = errors.New("staff member not found")
	ErrLeaveNotFound     = errors.New("leave request not found")
	ErrLeaveTypeNotFound = errors.New("leave type not found")
	ErrAllowanceExceeded = errors.New("leave allowance exceeded")
	ErrNotPending        = errors.New("leave request is not pending")
)

type StaffRepository interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, id uuid.UUID) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	List(ctx context.Context, limit, offset int) ([]*Staff, int, error)
}

type LeaveRepository interface {
	CreateRequest(ctx context.Context, lr *LeaveRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*LeaveRequest, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status LeaveStatus) error
	ListByStaff(ctx context.Context, staffID uuid.UUID) ([]*LeaveRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]*LeaveRequest, int, error)
	// ApprovedDays sums approved leave days of the given type for the staff
	// member in the year containing ref.
	ApprovedDays(ctx context.Context, staffID uuid.UUID, typeCode string, ref time.Time) (int, error)
	GetType(ctx context.Context, code string) (*LeaveType, error)
	ListTypes(ctx context.Context) ([]*LeaveType, error)
}
