// Package provision brings a registered hospital from onboarding_status
// pending to a fully usable tenant: physical database, schema, default
// modules, baseline reference data, and an administrator account.
//
// Every step is idempotent, so a run that failed part-way can be re-invoked
// and will resume instead of restarting destructively. Partial state is
// never rolled back on failure; the registry records failed and an operator
// re-triggers the run.
package provision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/his/his/internal/registry"
)

// Registry is the slice of the hospital registry the provisioner drives.
type Registry interface {
	GetByID(ctx context.Context, id int64) (*registry.Hospital, error)
	ClaimProvisioning(ctx context.Context, id int64) error
	MarkProvisioned(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	ResetProvisioning(ctx context.Context, id int64) error
}

// TenantSetup performs the per-tenant side effects of provisioning. Each
// method must be safe to call again after a partial failure.
type TenantSetup interface {
	// EnsureDatabase creates the tenant's physical database if it does not
	// already exist. An existing database is a no-op, not an error.
	EnsureDatabase(ctx context.Context, h *registry.Hospital) error
	// Migrate applies all pending tenant schema migrations and returns the
	// number applied.
	Migrate(ctx context.Context, h *registry.Hospital) (int, error)
	// EnableModules records a module-enablement row per module name.
	EnableModules(ctx context.Context, h *registry.Hospital, modules []string) error
	// Seed upserts the baseline reference data (roles, permission catalog,
	// payment modes, leave types). Re-running never duplicates rows.
	Seed(ctx context.Context, h *registry.Hospital) error
	// EnsureAdmin creates or updates the tenant administrator account keyed
	// by the hospital's deterministic admin email. password is empty when
	// the account already existed.
	EnsureAdmin(ctx context.Context, h *registry.Hospital) (email, password string, err error)
}

// Result summarizes a successful provisioning run.
type Result struct {
	Hospital          *registry.Hospital
	MigrationsApplied int
	AdminEmail        string
	// AdminPassword is set only when the admin account was created by this
	// run; re-runs leave the existing credentials untouched.
	AdminPassword string
}

// Service orchestrates the provisioning state machine.
type Service struct {
	registry Registry
	setup    TenantSetup
	modules  []string
	logger   zerolog.Logger
}

func NewService(reg Registry, setup TenantSetup, defaultModules []string, logger zerolog.Logger) *Service {
	return &Service{
		registry: reg,
		setup:    setup,
		modules:  defaultModules,
		logger:   logger,
	}
}

// Provision runs the full provisioning sequence for a hospital. The steps
// execute in strict order — each depends on its predecessor (no seeding
// before the schema exists, no admin account before the users table). The
// registry row is claimed first via compare-and-swap so concurrent runs for
// the same hospital cannot interleave.
//
// On any step failure the hospital is marked failed and the partial state is
// left in place; calling Provision again resumes from the top, with each
// step skipping work that is already done.
func (s *Service) Provision(ctx context.Context, hospitalID int64) (*Result, error) {
	if err := s.registry.ClaimProvisioning(ctx, hospitalID); err != nil {
		return nil, fmt.Errorf("claim provisioning for hospital %d: %w", hospitalID, err)
	}

	h, err := s.registry.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, s.fail(ctx, hospitalID, "", fmt.Errorf("load hospital %d: %w", hospitalID, err))
	}

	log := s.logger.With().Int64("hospital_id", h.ID).Str("hospital", h.Name).Logger()
	log.Info().Str("database", h.DBName).Msg("provisioning started")

	if err := s.setup.EnsureDatabase(ctx, h); err != nil {
		return nil, s.fail(ctx, h.ID, h.Name, fmt.Errorf("create database %s: %w", h.DBName, err))
	}

	applied, err := s.setup.Migrate(ctx, h)
	if err != nil {
		return nil, s.fail(ctx, h.ID, h.Name, fmt.Errorf("migrate database %s: %w", h.DBName, err))
	}
	log.Info().Int("applied", applied).Msg("tenant migrations applied")

	if err := s.setup.EnableModules(ctx, h, s.modules); err != nil {
		return nil, s.fail(ctx, h.ID, h.Name, fmt.Errorf("enable modules: %w", err))
	}

	if err := s.setup.Seed(ctx, h); err != nil {
		return nil, s.fail(ctx, h.ID, h.Name, fmt.Errorf("seed baseline data: %w", err))
	}

	email, password, err := s.setup.EnsureAdmin(ctx, h)
	if err != nil {
		return nil, s.fail(ctx, h.ID, h.Name, fmt.Errorf("ensure admin account: %w", err))
	}

	if err := s.registry.MarkProvisioned(ctx, h.ID); err != nil {
		return nil, s.fail(ctx, h.ID, h.Name, fmt.Errorf("mark provisioned: %w", err))
	}

	log.Info().Str("admin_email", email).Msg("provisioning completed")

	return &Result{
		Hospital:          h,
		MigrationsApplied: applied,
		AdminEmail:        email,
		AdminPassword:     password,
	}, nil
}

// ForceProvision reclaims a hospital whose previous run died without marking
// the registry row, leaving onboarding_status stuck at provisioning, then
// runs the normal sequence. Only for operator use: forcing a run that is
// actually still in flight lets two runs interleave.
func (s *Service) ForceProvision(ctx context.Context, hospitalID int64) (*Result, error) {
	if err := s.registry.ResetProvisioning(ctx, hospitalID); err != nil {
		return nil, fmt.Errorf("reset provisioning for hospital %d: %w", hospitalID, err)
	}
	s.logger.Warn().Int64("hospital_id", hospitalID).
		Msg("provisioning lock forcibly reclaimed")
	return s.Provision(ctx, hospitalID)
}

// fail records the failure on the registry row and surfaces the original
// error. Partial tenant state is deliberately preserved so a later run can
// resume.
func (s *Service) fail(ctx context.Context, hospitalID int64, name string, cause error) error {
	s.logger.Error().
		Int64("hospital_id", hospitalID).
		Str("hospital", name).
		Err(cause).
		Msg("provisioning failed")

	if err := s.registry.MarkFailed(ctx, hospitalID); err != nil {
		s.logger.Error().Int64("hospital_id", hospitalID).Err(err).
			Msg("could not record provisioning failure")
	}
	return cause
}
