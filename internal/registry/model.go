package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the operational lifecycle status of a hospital.
type Status string

const (
	StatusProvisioning Status = "provisioning"
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusSuspended    Status = "suspended"
)

// OnboardingStatus tracks the provisioning/setup-wizard flow, distinct from
// the operational Status.
type OnboardingStatus string

const (
	OnboardingPending      OnboardingStatus = "pending"
	OnboardingProvisioning OnboardingStatus = "provisioning"
	OnboardingProvisioned  OnboardingStatus = "provisioned"
	OnboardingFailed       OnboardingStatus = "failed"
	OnboardingCompleted    OnboardingStatus = "completed"
)

// Hospital maps to the hospitals table in the central registry database. It is
// the single source of truth for which physical database backs a tenant.
type Hospital struct {
	ID            int64            `db:"id" json:"id"`
	UUID          uuid.UUID        `db:"uuid" json:"uuid"`
	Name          string           `db:"name" json:"name"`
	Slug          string           `db:"slug" json:"slug"`
	Domain        string           `db:"domain" json:"domain"`
	DBName        string           `db:"db_name" json:"-"`
	DBHost        string           `db:"db_host" json:"-"`
	DBPort        int              `db:"db_port" json:"-"`
	DBUser        string           `db:"db_user" json:"-"`
	DBPassword    string           `db:"db_password" json:"-"`
	Status        Status           `db:"status" json:"status"`
	Onboarding    OnboardingStatus `db:"onboarding_status" json:"onboarding_status"`
	Plan          *string          `db:"plan" json:"plan,omitempty"`
	Country       *string          `db:"country" json:"country,omitempty"`
	City          *string          `db:"city" json:"city,omitempty"`
	Language      *string          `db:"language" json:"language,omitempty"`
	AdminEmail    string           `db:"admin_email" json:"admin_email"`
	AdminPhone    *string          `db:"admin_phone" json:"admin_phone,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	ProvisionedAt *time.Time       `db:"provisioned_at" json:"provisioned_at,omitempty"`
	DeletedAt     *time.Time       `db:"deleted_at" json:"-"`
}

// Resolvable reports whether the hospital may be bound as the current tenant.
// Suspended, inactive, still-provisioning, and soft-deleted hospitals must
// behave exactly like hospitals that do not exist.
func (h *Hospital) Resolvable() bool {
	return h != nil && h.Status == StatusActive && h.DeletedAt == nil
}

// DSN builds the PostgreSQL connection string for the hospital's own database
// from its stored connection parameters.
func (h *Hospital) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		h.DBUser, h.DBPassword, h.DBHost, h.DBPort, h.DBName)
}

// LoginURL derives the tenant login URL from the hospital's domain.
func (h *Hospital) LoginURL() string {
	return fmt.Sprintf("https://%s/login", h.Domain)
}

// AdminAccountEmail derives the tenant administrator address deterministically
// from the domain, so re-running provisioning resolves to the same account.
func (h *Hospital) AdminAccountEmail() string {
	return "admin@" + h.Domain
}
