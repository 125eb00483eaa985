package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no hospital matches the lookup.
	ErrNotFound = errors.New("hospital not found")
	// ErrProvisioningInProgress is returned when the provisioning lock for a
	// hospital is already held by another run.
	ErrProvisioningInProgress = errors.New("provisioning already in progress")

	// ErrSlugTaken, ErrDomainTaken and ErrDBNameTaken surface unique-constraint
	// violations from Create so callers know which field collided. Create can
	// lose a race that the caller's exists checks did not see.
	ErrSlugTaken   = errors.New("slug already registered")
	ErrDomainTaken = errors.New("domain already registered")
	ErrDBNameTaken = errors.New("database name already registered")
)

// Repository is the access layer for the central hospital registry.
type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id int64) (*Hospital, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*Hospital, error)
	GetByDomain(ctx context.Context, domain string) (*Hospital, error)
	GetBySlug(ctx context.Context, slug string) (*Hospital, error)
	// FirstActive returns the active hospital with the lowest id. It backs the
	// dev-only resolution fallback.
	FirstActive(ctx context.Context) (*Hospital, error)
	List(ctx context.Context) ([]*Hospital, error)

	SlugExists(ctx context.Context, slug string) (bool, error)
	DomainExists(ctx context.Context, domain string) (bool, error)
	DBNameExists(ctx context.Context, dbName string) (bool, error)

	// ClaimProvisioning atomically moves onboarding_status from pending or
	// failed to provisioning. It returns ErrProvisioningInProgress when the
	// row is not in a claimable state, guarding against concurrent runs.
	ClaimProvisioning(ctx context.Context, id int64) error
	// MarkProvisioned records provisioned_at and transitions the hospital to
	// status=active, onboarding_status=provisioned.
	MarkProvisioned(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	// ResetProvisioning moves a hospital stuck in onboarding_status
	// provisioning back to failed so ClaimProvisioning can succeed again.
	// Recovers rows orphaned by a crashed provisioning run; operator use only.
	ResetProvisioning(ctx context.Context, id int64) error
	// MarkCompleted transitions onboarding_status from provisioned to
	// completed when the setup wizard finishes.
	MarkCompleted(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
}
