package hr

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Service struct {
	staff    StaffRepository
	leave    LeaveRepository
	validate *validator.Validate
}

func NewService(staff StaffRepository, leave LeaveRepository) *Service {
	return &Service{staff: staff, leave: leave, validate: validator.New()}
}

func (s *Service) CreateStaff(ctx context.Context, req *CreateStaffRequest) (*Staff, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	hired := time.Now()
	if req.HiredAt != nil {
		parsed, err := time.Parse("2006-01-02", *req.HiredAt)
		if err != nil {
			return nil, fmt.Errorf("parse hired_at: %w", err)
		}
		hired = parsed
	}

	member := &Staff{
		UserID:     req.UserID,
		FullName:   req.FullName,
		Position:   req.Position,
		Department: req.Department,
		HiredAt:    hired,
		Active:     true,
	}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return s.staff.List(ctx, limit, offset)
}

// RequestLeave files a leave request. The day count is inclusive of both end
// dates. Types with a non-zero annual allowance are checked against days
// already approved this year; the pending request itself does not consume
// allowance until approved.
func (s *Service) RequestLeave(ctx context.Context, staffID uuid.UUID, req *RequestLeaveRequest) (*LeaveRequest, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	if _, err := s.staff.GetByID(ctx, staffID); err != nil {
		return nil, err
	}
	lt, err := s.leave.GetType(ctx, req.TypeCode)
	if err != nil {
		return nil, err
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date precedes start date")
	}
	days := int(end.Sub(start).Hours()/24) + 1

	if lt.DaysPerYear > 0 {
		used, err := s.leave.ApprovedDays(ctx, staffID, lt.Code, start)
		if err != nil {
			return nil, err
		}
		if used+days > lt.DaysPerYear {
			return nil, fmt.Errorf("%w: %d of %d days used, %d requested",
				ErrAllowanceExceeded, used, lt.DaysPerYear, days)
		}
	}

	lr := &LeaveRequest{
		StaffID:   staffID,
		TypeCode:  lt.Code,
		StartDate: start,
		EndDate:   end,
		Days:      days,
		Status:    LeavePending,
		Reason:    req.Reason,
	}
	if err := s.leave.CreateRequest(ctx, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

// ApproveLeave re-checks the allowance at approval time: other requests may
// have been approved since the request was filed.
func (s *Service) ApproveLeave(ctx context.Context, id uuid.UUID) error {
	lr, err := s.leave.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if lr.Status != LeavePending {
		return ErrNotPending
	}

	lt, err := s.leave.GetType(ctx, lr.TypeCode)
	if err != nil {
		return err
	}
	if lt.DaysPerYear > 0 {
		used, err := s.leave.ApprovedDays(ctx, lr.StaffID, lr.TypeCode, lr.StartDate)
		if err != nil {
			return err
		}
		if used+lr.Days > lt.DaysPerYear {
			return fmt.Errorf("%w: %d of %d days used, %d requested",
				ErrAllowanceExceeded, used, lt.DaysPerYear, lr.Days)
		}
	}

	return s.leave.UpdateRequestStatus(ctx, id, LeaveApproved)
}

func (s *Service) RejectLeave(ctx context.Context, id uuid.UUID) error {
	lr, err := s.leave.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if lr.Status != LeavePending {
		return ErrNotPending
	}
	return s.leave.UpdateRequestStatus(ctx, id, LeaveRejected)
}

func (s *Service) StaffLeave(ctx context.Context, staffID uuid.UUID) ([]*LeaveRequest, error) {
	return s.leave.ListByStaff(ctx, staffID)
}

func (s *Service) PendingLeave(ctx context.Context, limit, offset int) ([]*LeaveRequest, int, error) {
	return s.leave.ListPending(ctx, limit, offset)
}

func (s *Service) LeaveTypes(ctx context.Context) ([]*LeaveType, error) {
	return s.leave.ListTypes(ctx)
}
