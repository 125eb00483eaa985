package onboarding

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/his/his/internal/registry"
)

// Enqueuer schedules background provisioning for a newly created hospital.
type Enqueuer interface {
	Enqueue(hospitalID int64) bool
}

// TenantDBConfig holds the connection parameters recorded for each new
// hospital's database. All tenant databases live on the same server unless an
// operator rehomes one by editing the registry row.
type TenantDBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type Service struct {
	repo     registry.Repository
	queue    Enqueuer
	validate *validator.Validate
	tenantDB TenantDBConfig
	// baseDomain is the suffix for derived tenant domains.
	baseDomain string
	logger     zerolog.Logger
}

func NewService(repo registry.Repository, queue Enqueuer, tenantDB TenantDBConfig, baseDomain string, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		queue:      queue,
		validate:   validator.New(),
		tenantDB:   tenantDB,
		baseDomain: baseDomain,
		logger:     logger,
	}
}

// Register validates the request, reserves the hospital's identifiers in the
// registry, and schedules provisioning. The hospital starts in
// status=provisioning / onboarding_status=pending and is not resolvable as a
// tenant until provisioning completes.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}

	slug := Slugify(req.Name)
	if slug == "" {
		return nil, fmt.Errorf("name %q does not yield a usable slug", req.Name)
	}

	domain := req.Domain
	if domain == "" {
		domain = DeriveDomain(slug, s.baseDomain)
	}
	dbName := DeriveDBName(slug)

	// Per-field conflict checks so the client knows exactly what to change.
	if exists, err := s.repo.SlugExists(ctx, slug); err != nil {
		return nil, fmt.Errorf("check slug: %w", err)
	} else if exists {
		return nil, &ConflictError{Field: "name", Value: req.Name}
	}
	if exists, err := s.repo.DomainExists(ctx, domain); err != nil {
		return nil, fmt.Errorf("check domain: %w", err)
	} else if exists {
		return nil, &ConflictError{Field: "domain", Value: domain}
	}
	if exists, err := s.repo.DBNameExists(ctx, dbName); err != nil {
		return nil, fmt.Errorf("check db name: %w", err)
	} else if exists {
		return nil, &ConflictError{Field: "name", Value: req.Name}
	}

	h := &registry.Hospital{
		UUID:       uuid.New(),
		Name:       req.Name,
		Slug:       slug,
		Domain:     domain,
		DBName:     dbName,
		DBHost:     s.tenantDB.Host,
		DBPort:     s.tenantDB.Port,
		DBUser:     s.tenantDB.User,
		DBPassword: s.tenantDB.Password,
		Status:     registry.StatusProvisioning,
		Onboarding: registry.OnboardingPending,
		Plan:       req.Plan,
		Country:    req.Country,
		City:       req.City,
		Language:   req.Language,
		AdminEmail: req.AdminEmail,
		AdminPhone: req.AdminPhone,
	}

	if err := s.repo.Create(ctx, h); err != nil {
		// A concurrent registration can win between the exists checks and the
		// insert; the constraint violation still maps to a field conflict.
		switch {
		case errors.Is(err, registry.ErrSlugTaken), errors.Is(err, registry.ErrDBNameTaken):
			return nil, &ConflictError{Field: "name", Value: req.Name}
		case errors.Is(err, registry.ErrDomainTaken):
			return nil, &ConflictError{Field: "domain", Value: domain}
		}
		return nil, fmt.Errorf("create hospital: %w", err)
	}

	if !s.queue.Enqueue(h.ID) {
		// The registration stands; provisioning can be re-triggered from the
		// CLI once the queue drains.
		s.logger.Warn().Int64("hospital_id", h.ID).Str("slug", slug).
			Msg("provisioning not scheduled, queue full")
	}

	s.logger.Info().Int64("hospital_id", h.ID).Str("slug", slug).
		Str("domain", domain).Msg("hospital registered")

	return &RegisterResponse{
		UUID:       h.UUID,
		Name:       h.Name,
		Slug:       h.Slug,
		Domain:     h.Domain,
		Status:     h.Status,
		Onboarding: h.Onboarding,
	}, nil
}

// Status reports provisioning progress. The login URL is included only after
// the tenant database is ready.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*StatusResponse, error) {
	h, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{
		UUID:          h.UUID,
		Name:          h.Name,
		Status:        h.Status,
		Onboarding:    h.Onboarding,
		ProvisionedAt: h.ProvisionedAt,
	}
	if h.Onboarding == registry.OnboardingProvisioned || h.Onboarding == registry.OnboardingCompleted {
		resp.LoginURL = h.LoginURL()
	}
	return resp, nil
}

// Complete marks the setup wizard finished for a provisioned hospital.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	h, err := s.repo.GetByUUID(ctx, id)
	if err != nil {
		return err
	}
	if h.Onboarding != registry.OnboardingProvisioned {
		return fmt.Errorf("hospital %s is not provisioned (onboarding status %s)", h.Slug, h.Onboarding)
	}
	return s.repo.MarkCompleted(ctx, h.ID)
}
