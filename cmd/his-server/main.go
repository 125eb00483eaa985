package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/his/his/internal/config"
	"github.com/his/his/internal/domain/billing"
	"github.com/his/his/internal/domain/hr"
	"github.com/his/his/internal/domain/identity"
	"github.com/his/his/internal/domain/onboarding"
	"github.com/his/his/internal/domain/patient"
	"github.com/his/his/internal/domain/scheduling"
	"github.com/his/his/internal/domain/stock"
	"github.com/his/his/internal/platform/auth"
	"github.com/his/his/internal/platform/db"
	"github.com/his/his/internal/platform/middleware"
	"github.com/his/his/internal/platform/worker"
	"github.com/his/his/internal/provision"
	"github.com/his/his/internal/registry"
	"github.com/his/his/internal/tenancy"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "his-server",
		Short: "Multi-tenant hospital information system server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return logger
}

// app bundles the shared infrastructure both the server and the CLI
// subcommands need: configuration, the registry pool and repository, and the
// per-tenant pool cache.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	registry *pgxpool.Pool
	repo     registry.Repository
	pools    *tenancy.PoolManager
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	pool, err := db.NewPool(ctx, cfg.RegistryURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect registry database: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: pool,
		repo:     registry.NewRepo(pool),
		pools:    tenancy.NewPoolManager(cfg.TenantMaxConns),
	}, nil
}

func (a *app) Close() {
	a.pools.Close()
	a.registry.Close()
}

func (a *app) provisioner() *provision.Service {
	setup := provision.NewPGSetup(a.registry, a.pools,
		filepath.Join(a.cfg.MigrationsDir, "tenant"))
	return provision.NewService(a.repo, setup, a.cfg.DefaultModules, a.logger)
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	queue := worker.NewQueue(worker.RunnerFunc(func(ctx context.Context, hospitalID int64) error {
		_, err := a.provisioner().Provision(ctx, hospitalID)
		return err
	}), 64, a.logger)
	queue.Start(ctx)

	resolver := tenancy.NewResolver(a.repo, a.cfg.TenantFallbackEnabled())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.CORSOrigins,
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization,
			tenancy.HeaderHospitalID, tenancy.HeaderTenantDomain, tenancy.HeaderOriginalHost,
		},
	}))
	e.Use(middleware.RequestTimeout(30 * time.Second))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(a.registry))

	var authMW echo.MiddlewareFunc
	if a.cfg.IsDev() && a.cfg.JWTSecret == "" && a.cfg.AuthJWKSURL == "" {
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     a.cfg.AuthIssuer,
			Audience:   a.cfg.AuthAudience,
			JWKSURL:    a.cfg.AuthJWKSURL,
			SigningKey: []byte(a.cfg.JWTSecret),
			Skipper:    auth.AuthSkipper,
		})
	}

	// Onboarding is the only public API surface: a hospital registering
	// itself has no tenant and no accounts yet.
	public := e.Group("/api/v1")
	onboardingSvc := onboarding.NewService(a.repo, queue, onboarding.TenantDBConfig{
		Host:     a.cfg.TenantDBHost,
		Port:     a.cfg.TenantDBPort,
		User:     a.cfg.TenantDBUser,
		Password: a.cfg.TenantDBPassword,
	}, a.cfg.BaseDomain, a.logger)
	onboarding.NewHandler(onboardingSvc).RegisterRoutes(public)

	api := e.Group("/api/v1",
		authMW,
		tenancy.Middleware(resolver, a.pools),
		middleware.RateLimit(middleware.DefaultRateLimitConfig()),
	)

	identity.NewHandler(identity.NewService(
		identity.NewUserRepoPG(), identity.NewRoleRepoPG())).RegisterRoutes(api)

	patient.NewHandler(patient.NewService(
		patient.NewRepoPG(), patient.NewAdmissionRepoPG())).
		RegisterRoutes(api.Group("", tenancy.RequireModule("patients")))

	billing.NewHandler(billing.NewService(
		billing.NewInvoiceRepoPG(), billing.NewPaymentRepoPG())).
		RegisterRoutes(api.Group("", tenancy.RequireModule("billing")))

	stock.NewHandler(stock.NewService(stock.NewRepoPG())).
		RegisterRoutes(api.Group("", tenancy.RequireModule("stock")))

	scheduling.NewHandler(scheduling.NewService(scheduling.NewRepoPG())).
		RegisterRoutes(api.Group("", tenancy.RequireModule("scheduling")))

	hr.NewHandler(hr.NewService(hr.NewStaffRepoPG(), hr.NewLeaveRepoPG())).
		RegisterRoutes(api.Group("", tenancy.RequireModule("hr")))

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(":" + a.cfg.Port)
	}()
	a.logger.Info().Str("port", a.cfg.Port).Str("env", a.cfg.Env).Msg("server started")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			all, _ := cmd.Flags().GetBool("all")

			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if tenant == "" && !all {
				migrator := db.NewMigrator(filepath.Join(a.cfg.MigrationsDir, "registry"))
				count, err := migrator.Up(ctx, a.registry)
				if err != nil {
					return fmt.Errorf("registry migration failed: %w", err)
				}
				fmt.Printf("registry: applied %d migration(s)\n", count)
				return nil
			}

			migrator := db.NewMigrator(filepath.Join(a.cfg.MigrationsDir, "tenant"))
			hospitals, err := a.targetHospitals(ctx, tenant, all)
			if err != nil {
				return err
			}
			for _, h := range hospitals {
				pool, err := a.pools.Get(ctx, h)
				if err != nil {
					return fmt.Errorf("connect %s: %w", h.Slug, err)
				}
				count, err := migrator.Up(ctx, pool)
				if err != nil {
					return fmt.Errorf("migrate %s: %w", h.Slug, err)
				}
				fmt.Printf("%s: applied %d migration(s)\n", h.Slug, count)
			}
			return nil
		},
	}
	upCmd.Flags().String("tenant", "", "Apply tenant migrations to one hospital (slug)")
	upCmd.Flags().Bool("all", false, "Apply tenant migrations to every active hospital")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")

			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			pool := a.registry
			dir := filepath.Join(a.cfg.MigrationsDir, "registry")
			if tenant != "" {
				h, err := a.repo.GetBySlug(ctx, tenant)
				if err != nil {
					return err
				}
				pool, err = a.pools.Get(ctx, h)
				if err != nil {
					return err
				}
				dir = filepath.Join(a.cfg.MigrationsDir, "tenant")
			}

			statuses, err := db.NewMigrator(dir).Status(ctx, pool)
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("tenant", "", "Show tenant migration status for one hospital (slug)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// targetHospitals resolves the --tenant/--all flags into hospital rows.
func (a *app) targetHospitals(ctx context.Context, tenant string, all bool) ([]*registry.Hospital, error) {
	if tenant != "" {
		h, err := a.repo.GetBySlug(ctx, tenant)
		if err != nil {
			return nil, err
		}
		return []*registry.Hospital{h}, nil
	}
	hospitals, err := a.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*registry.Hospital
	for _, h := range hospitals {
		if h.Status == registry.StatusActive {
			out = append(out, h)
		}
	}
	return out, nil
}

// enqueuerFunc adapts a function to the onboarding.Enqueuer interface so the
// CLI can provision synchronously instead of through the server queue.
type enqueuerFunc func(hospitalID int64) bool

func (f enqueuerFunc) Enqueue(hospitalID int64) bool { return f(hospitalID) }

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage hospital tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a hospital and provision it synchronously",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			domain, _ := cmd.Flags().GetString("domain")

			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			prov := a.provisioner()
			svc := onboarding.NewService(a.repo, enqueuerFunc(func(hospitalID int64) bool {
				result, err := prov.Provision(ctx, hospitalID)
				if err != nil {
					fmt.Fprintf(os.Stderr, "provisioning failed: %v\n", err)
					return false
				}
				fmt.Printf("provisioned %s\n", result.Hospital.Slug)
				fmt.Printf("admin email:    %s\n", result.AdminEmail)
				if result.AdminPassword != "" {
					fmt.Printf("admin password: %s\n", result.AdminPassword)
				}
				return true
			}), onboarding.TenantDBConfig{
				Host:     a.cfg.TenantDBHost,
				Port:     a.cfg.TenantDBPort,
				User:     a.cfg.TenantDBUser,
				Password: a.cfg.TenantDBPassword,
			}, a.cfg.BaseDomain, a.logger)

			resp, err := svc.Register(ctx, &onboarding.RegisterRequest{
				Name:       name,
				AdminEmail: email,
				Domain:     domain,
			})
			if err != nil {
				return err
			}
			fmt.Printf("hospital uuid:  %s\n", resp.UUID)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Hospital name")
	createCmd.Flags().String("email", "", "Administrator contact email")
	createCmd.Flags().String("domain", "", "Custom domain (derived from the name when empty)")
	createCmd.MarkFlagRequired("name")
	createCmd.MarkFlagRequired("email")
	cmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered hospitals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			hospitals, err := a.repo.List(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-5s %-24s %-32s %-14s %s\n", "ID", "SLUG", "DOMAIN", "STATUS", "ONBOARDING")
			for _, h := range hospitals {
				fmt.Printf("%-5d %-24s %-32s %-14s %s\n", h.ID, h.Slug, h.Domain, h.Status, h.Onboarding)
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	provisionCmd := &cobra.Command{
		Use:   "provision <slug>",
		Short: "Run or resume provisioning for a hospital",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.repo.GetBySlug(ctx, args[0])
			if err != nil {
				return err
			}

			prov := a.provisioner()
			var result *provision.Result
			if force, _ := cmd.Flags().GetBool("force"); force {
				result, err = prov.ForceProvision(ctx, h.ID)
			} else {
				result, err = prov.Provision(ctx, h.ID)
			}
			if err != nil {
				return err
			}
			fmt.Printf("provisioned %s (%d migration(s) applied)\n",
				result.Hospital.Slug, result.MigrationsApplied)
			fmt.Printf("admin email:    %s\n", result.AdminEmail)
			if result.AdminPassword != "" {
				fmt.Printf("admin password: %s\n", result.AdminPassword)
			}
			return nil
		},
	}
	provisionCmd.Flags().Bool("force", false,
		"reclaim a run left stuck in provisioning by a crashed worker")
	cmd.AddCommand(provisionCmd)

	statusCmd := &cobra.Command{
		Use:   "status <slug>",
		Short: "Show a hospital's lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			h, err := a.repo.GetBySlug(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("name:       %s\n", h.Name)
			fmt.Printf("uuid:       %s\n", h.UUID)
			fmt.Printf("domain:     %s\n", h.Domain)
			fmt.Printf("database:   %s\n", h.DBName)
			fmt.Printf("status:     %s\n", h.Status)
			fmt.Printf("onboarding: %s\n", h.Onboarding)
			if h.ProvisionedAt != nil {
				fmt.Printf("provisioned at: %s\n", h.ProvisionedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(moduleCmd("enable-module", "Enable a module for a hospital", tenancy.EnableModule))
	cmd.AddCommand(moduleCmd("disable-module", "Disable a module for a hospital", tenancy.DisableModule))

	modulesCmd := &cobra.Command{
		Use:   "modules <slug>",
		Short: "List a hospital's module enablement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			tctx, err := a.connectTenant(ctx, args[0])
			if err != nil {
				return err
			}
			modules, err := tenancy.ListModules(ctx, tctx.CurrentPool())
			if err != nil {
				return err
			}
			for name, enabled := range modules {
				state := "disabled"
				if enabled {
					state = "enabled"
				}
				fmt.Printf("%-16s %s\n", name, state)
			}
			return nil
		},
	}
	cmd.AddCommand(modulesCmd)

	seedCmd := &cobra.Command{
		Use:   "seed [slug]",
		Short: "Re-apply the baseline reference data",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if len(args) == 0 && !all {
				return fmt.Errorf("a hospital slug or --all is required")
			}

			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			slug := ""
			if len(args) == 1 {
				slug = args[0]
			}
			hospitals, err := a.targetHospitals(ctx, slug, all)
			if err != nil {
				return err
			}
			for _, h := range hospitals {
				pool, err := a.pools.Get(ctx, h)
				if err != nil {
					return fmt.Errorf("connect %s: %w", h.Slug, err)
				}
				if err := provision.SeedBaseline(ctx, pool); err != nil {
					return fmt.Errorf("seed %s: %w", h.Slug, err)
				}
				fmt.Printf("%s: baseline data seeded\n", h.Slug)
			}
			return nil
		},
	}
	seedCmd.Flags().Bool("all", false, "Seed every active hospital")
	cmd.AddCommand(seedCmd)

	return cmd
}

// connectTenant binds the named hospital through a CLI tenant context.
func (a *app) connectTenant(ctx context.Context, slug string) (*tenancy.Context, error) {
	h, err := a.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	tctx := tenancy.NewContext(a.pools)
	if err := tctx.Connect(ctx, h); err != nil {
		return nil, fmt.Errorf("connect tenant %s: %w", slug, err)
	}
	return tctx, nil
}

func moduleCmd(use, short string, apply func(context.Context, db.Queryable, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <slug> <module>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			tctx, err := a.connectTenant(ctx, args[0])
			if err != nil {
				return err
			}
			if err := apply(ctx, tctx.CurrentPool(), args[1]); err != nil {
				return err
			}
			fmt.Printf("%s: %s updated\n", args[0], args[1])
			return nil
		},
	}
}
