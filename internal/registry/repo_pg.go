package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const hospitalColumns = `id, uuid, name, slug, domain,
	db_name, db_host, db_port, db_user, db_password,
	status, onboarding_status,
	plan, country, city, language, admin_email, admin_phone,
	created_at, provisioned_at, deleted_at`

type repoPG struct {
	pool *pgxpool.Pool
}

// NewRepo creates a Repository backed by the central registry database.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, h *Hospital) error {
	if h.UUID == uuid.Nil {
		h.UUID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO hospitals (
			uuid, name, slug, domain,
			db_name, db_host, db_port, db_user, db_password,
			status, onboarding_status,
			plan, country, city, language, admin_email, admin_phone
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11,
			$12, $13, $14, $15, $16, $17
		) RETURNING id, created_at`,
		h.UUID, h.Name, h.Slug, h.Domain,
		h.DBName, h.DBHost, h.DBPort, h.DBUser, h.DBPassword,
		h.Status, h.Onboarding,
		h.Plan, h.Country, h.City, h.Language, h.AdminEmail, h.AdminPhone,
	)
	if err := row.Scan(&h.ID, &h.CreatedAt); err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// mapUniqueViolation converts duplicate-key errors on the hospitals table to
// the per-field sentinels. The caller's exists checks race with concurrent
// registrations; the constraint is the authority.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "hospitals_slug_key":
		return ErrSlugTaken
	case "hospitals_domain_key":
		return ErrDomainTaken
	case "hospitals_db_name_key":
		return ErrDBNameTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Hospital, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospitals WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByUUID(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospitals WHERE uuid = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByDomain(ctx context.Context, domain string) (*Hospital, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospitals WHERE domain = $1 AND deleted_at IS NULL`, domain))
}

func (r *repoPG) GetBySlug(ctx context.Context, slug string) (*Hospital, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospitals WHERE slug = $1 AND deleted_at IS NULL`, slug))
}

func (r *repoPG) FirstActive(ctx context.Context) (*Hospital, error) {
	return r.scan(r.pool.QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospitals
		 WHERE status = $1 AND deleted_at IS NULL
		 ORDER BY id LIMIT 1`, StatusActive))
}

func (r *repoPG) List(ctx context.Context) ([]*Hospital, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+hospitalColumns+` FROM hospitals WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hospitals []*Hospital
	for rows.Next() {
		h, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, rows.Err()
}

func (r *repoPG) SlugExists(ctx context.Context, slug string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM hospitals WHERE slug = $1)`, slug)
}

func (r *repoPG) DomainExists(ctx context.Context, domain string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM hospitals WHERE domain = $1)`, domain)
}

func (r *repoPG) DBNameExists(ctx context.Context, dbName string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM hospitals WHERE db_name = $1)`, dbName)
}

func (r *repoPG) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (r *repoPG) ClaimProvisioning(ctx context.Context, id int64) error {
	// Compare-and-swap on onboarding_status so two workers can never run
	// provisioning for the same hospital at once.
	tag, err := r.pool.Exec(ctx, `
		UPDATE hospitals SET onboarding_status = $1
		WHERE id = $2 AND onboarding_status IN ($3, $4) AND deleted_at IS NULL`,
		OnboardingProvisioning, id, OnboardingPending, OnboardingFailed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		h, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if h.Onboarding == OnboardingProvisioning {
			return ErrProvisioningInProgress
		}
		return fmt.Errorf("hospital %d is not claimable (onboarding_status=%s)", id, h.Onboarding)
	}
	return nil
}

func (r *repoPG) MarkProvisioned(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE hospitals SET
			status = $1, onboarding_status = $2, provisioned_at = NOW()
		WHERE id = $3`,
		StatusActive, OnboardingProvisioned, id)
	return err
}

func (r *repoPG) MarkFailed(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE hospitals SET onboarding_status = $1 WHERE id = $2`,
		OnboardingFailed, id)
	return err
}

func (r *repoPG) ResetProvisioning(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE hospitals SET onboarding_status = $1
		WHERE id = $2 AND onboarding_status = $3 AND deleted_at IS NULL`,
		OnboardingFailed, id, OnboardingProvisioning)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hospital %d is not stuck in provisioning", id)
	}
	return nil
}

func (r *repoPG) MarkCompleted(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE hospitals SET onboarding_status = $1
		WHERE id = $2 AND onboarding_status = $3`,
		OnboardingCompleted, id, OnboardingProvisioned)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("hospital %d is not provisioned", id)
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.pool.Exec(ctx, `UPDATE hospitals SET status = $1 WHERE id = $2`, status, id)
	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *repoPG) scan(row scannable) (*Hospital, error) {
	h := &Hospital{}
	err := row.Scan(
		&h.ID, &h.UUID, &h.Name, &h.Slug, &h.Domain,
		&h.DBName, &h.DBHost, &h.DBPort, &h.DBUser, &h.DBPassword,
		&h.Status, &h.Onboarding,
		&h.Plan, &h.Country, &h.City, &h.Language, &h.AdminEmail, &h.AdminPhone,
		&h.CreatedAt, &h.ProvisionedAt, &h.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*Hospital, error) {
	return r.scan(rows)
}
