package provision

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/his/his/internal/platform/db"
	"github.com/his/his/internal/registry"
	"github.com/his/his/internal/tenancy"
)

// dbNamePattern guards the CREATE DATABASE statement; database names cannot
// be parameterized so they are restricted to a safe identifier alphabet.
var dbNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PGSetup is the PostgreSQL implementation of TenantSetup. Database creation
// runs on the central server connection; everything else runs on the
// tenant's own pool.
type PGSetup struct {
	registryPool *pgxpool.Pool
	pools        tenancy.PoolSource
	migrator     *db.Migrator
}

// NewPGSetup creates a PGSetup. tenantMigrationsDir holds the tenant schema
// migration set (not the registry's own migrations).
func NewPGSetup(registryPool *pgxpool.Pool, pools tenancy.PoolSource, tenantMigrationsDir string) *PGSetup {
	return &PGSetup{
		registryPool: registryPool,
		pools:        pools,
		migrator:     db.NewMigrator(tenantMigrationsDir),
	}
}

func (s *PGSetup) EnsureDatabase(ctx context.Context, h *registry.Hospital) error {
	if !dbNamePattern.MatchString(h.DBName) {
		return fmt.Errorf("invalid database name: %s", h.DBName)
	}

	var exists bool
	err := s.registryPool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, h.DBName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database existence: %w", err)
	}
	if exists {
		// Left over from an earlier attempt; reuse it.
		return nil
	}

	// CREATE DATABASE cannot run inside a transaction and does not accept
	// bind parameters; the name is validated above.
	if _, err := s.registryPool.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, h.DBName)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	return nil
}

func (s *PGSetup) Migrate(ctx context.Context, h *registry.Hospital) (int, error) {
	pool, err := s.pools.Get(ctx, h)
	if err != nil {
		return 0, err
	}
	return s.migrator.Up(ctx, pool)
}

func (s *PGSetup) EnableModules(ctx context.Context, h *registry.Hospital, modules []string) error {
	pool, err := s.pools.Get(ctx, h)
	if err != nil {
		return err
	}
	for _, name := range modules {
		if err := tenancy.EnableModule(ctx, pool, name); err != nil {
			return fmt.Errorf("enable module %s: %w", name, err)
		}
	}
	return nil
}

func (s *PGSetup) Seed(ctx context.Context, h *registry.Hospital) error {
	pool, err := s.pools.Get(ctx, h)
	if err != nil {
		return err
	}
	return SeedBaseline(ctx, pool)
}

func (s *PGSetup) EnsureAdmin(ctx context.Context, h *registry.Hospital) (string, string, error) {
	pool, err := s.pools.Get(ctx, h)
	if err != nil {
		return "", "", err
	}
	return ensureAdminAccount(ctx, pool, h)
}

func ensureAdminAccount(ctx context.Context, q db.Queryable, h *registry.Hospital) (string, string, error) {
	email := h.AdminAccountEmail()

	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return "", "", fmt.Errorf("check admin account: %w", err)
	}
	if exists {
		// Re-run: the account is already there, leave credentials alone.
		return email, "", nil
	}

	password, err := generatePassword()
	if err != nil {
		return "", "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash admin password: %w", err)
	}

	// users.id has no column default; the id is generated here.
	_, err = q.Exec(ctx, `
		INSERT INTO users (id, email, full_name, password_hash, role, active)
		VALUES ($1, $2, $3, $4, 'admin', TRUE)
		ON CONFLICT (email) DO NOTHING`,
		uuid.New(), email, h.Name+" Administrator", string(hash))
	if err != nil {
		return "", "", fmt.Errorf("create admin account: %w", err)
	}

	return email, password, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
