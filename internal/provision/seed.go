package provision

import (
	"context"
	"fmt"

	"github.com/his/his/internal/platform/db"
)

// Baseline reference data shared by every new tenant. Seeding uses
// ON CONFLICT DO NOTHING keyed on the natural identifier, so re-running a
// partially failed provisioning never duplicates rows.

type roleSeed struct {
	name        string
	description string
}

var defaultRoles = []roleSeed{
	{"admin", "Full administrative access"},
	{"physician", "Clinical staff with patient record access"},
	{"nurse", "Nursing staff with care and movement access"},
	{"registrar", "Front-desk registration and admissions"},
	{"pharmacist", "Pharmacy and stock management"},
	{"accountant", "Billing and payment management"},
}

var defaultPermissions = []string{
	"patients.read", "patients.write",
	"admissions.read", "admissions.write",
	"billing.read", "billing.write",
	"stock.read", "stock.write",
	"scheduling.read", "scheduling.write",
	"hr.read", "hr.write",
	"users.read", "users.write",
	"modules.manage",
}

type paymentModeSeed struct {
	code string
	name string
}

var defaultPaymentModes = []paymentModeSeed{
	{"cash", "Cash"},
	{"card", "Card"},
	{"insurance", "Insurance"},
	{"mobile_money", "Mobile Money"},
	{"bank_transfer", "Bank Transfer"},
}

type leaveTypeSeed struct {
	code string
	name string
	days int
}

var defaultLeaveTypes = []leaveTypeSeed{
	{"annual", "Annual Leave", 30},
	{"sick", "Sick Leave", 15},
	{"maternity", "Maternity Leave", 98},
	{"unpaid", "Unpaid Leave", 0},
}

// SeedBaseline upserts the reference catalogs into a tenant database.
func SeedBaseline(ctx context.Context, q db.Queryable) error {
	for _, r := range defaultRoles {
		_, err := q.Exec(ctx, `
			INSERT INTO roles (name, description) VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING`, r.name, r.description)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.name, err)
		}
	}

	for _, p := range defaultPermissions {
		_, err := q.Exec(ctx, `
			INSERT INTO permissions (code) VALUES ($1)
			ON CONFLICT (code) DO NOTHING`, p)
		if err != nil {
			return fmt.Errorf("seed permission %s: %w", p, err)
		}
	}

	// Admin gets the full permission catalog.
	_, err := q.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT r.id, p.id FROM roles r CROSS JOIN permissions p WHERE r.name = 'admin'
		ON CONFLICT (role_id, permission_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("seed admin role permissions: %w", err)
	}

	for _, pm := range defaultPaymentModes {
		_, err := q.Exec(ctx, `
			INSERT INTO payment_modes (code, name) VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING`, pm.code, pm.name)
		if err != nil {
			return fmt.Errorf("seed payment mode %s: %w", pm.code, err)
		}
	}

	for _, lt := range defaultLeaveTypes {
		_, err := q.Exec(ctx, `
			INSERT INTO leave_types (code, name, days_per_year) VALUES ($1, $2, $3)
			ON CONFLICT (code) DO NOTHING`, lt.code, lt.name, lt.days)
		if err != nil {
			return fmt.Errorf("seed leave type %s: %w", lt.code, err)
		}
	}

	return nil
}
