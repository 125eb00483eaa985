// Package hr manages staff records and leave for a hospital.
package hr

import (
	"time"

	"github.com/google/uuid"
)

type Staff struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	FullName   string     `db:"full_name" json:"full_name"`
	Position   string     `db:"position" json:"position"`
	Department string     `db:"department" json:"department"`
	HiredAt    time.Time  `db:"hired_at" json:"hired_at"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

type LeaveType struct {
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	// DaysPerYear is the annual allowance; zero means unlimited (unpaid leave).
	DaysPerYear int `db:"days_per_year" json:"days_per_year"`
}

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

type LeaveRequest struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	StaffID   uuid.UUID   `db:"staff_id" json:"staff_id"`
	TypeCode  string      `db:"type_code" json:"type_code"`
	StartDate time.Time   `db:"start_date" json:"start_date"`
	EndDate   time.Time   `db:"end_date" json:"end_date"`
	Days      int         `db:"days" json:"days"`
	Status    LeaveStatus `db:"status" json:"status"`
	Reason    *string     `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

type CreateStaffRequest struct {
	FullName   string     `json:"full_name" validate:"required,min=2,max=120"`
	Position   string     `json:"position" validate:"required,max=80"`
	Department string     `json:"department" validate:"required,max=80"`
	HiredAt    *string    `json:"hired_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
}

type RequestLeaveRequest struct {
	TypeCode  string  `json:"type_code" validate:"required"`
	StartDate string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason    *string `json:"reason,omitempty"`
}
