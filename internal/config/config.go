package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	RegistryURL       string   `mapstructure:"REGISTRY_DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	TenantMaxConns    int32    `mapstructure:"TENANT_MAX_CONNS"`
	TenantDBHost      string   `mapstructure:"TENANT_DB_HOST"`
	TenantDBPort      int      `mapstructure:"TENANT_DB_PORT"`
	TenantDBUser      string   `mapstructure:"TENANT_DB_USER"`
	TenantDBPassword  string   `mapstructure:"TENANT_DB_PASSWORD"`
	BaseDomain        string   `mapstructure:"BASE_DOMAIN"`
	DevTenantFallback bool     `mapstructure:"DEV_TENANT_FALLBACK"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	AuthIssuer        string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL       string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience      string   `mapstructure:"AUTH_AUDIENCE"`
	MigrationsDir     string   `mapstructure:"MIGRATIONS_DIR"`
	DefaultModules    []string `mapstructure:"DEFAULT_MODULES"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TENANT_MAX_CONNS", 10)
	v.SetDefault("TENANT_DB_HOST", "localhost")
	v.SetDefault("TENANT_DB_PORT", 5432)
	v.SetDefault("TENANT_DB_USER", "postgres")
	v.SetDefault("TENANT_DB_PASSWORD", "postgres")
	v.SetDefault("BASE_DOMAIN", "localhost")
	v.SetDefault("DEV_TENANT_FALLBACK", true)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("DEFAULT_MODULES", "patients,billing,stock,scheduling,hr")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("REGISTRY_DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("TENANT_MAX_CONNS")
	v.BindEnv("TENANT_DB_HOST")
	v.BindEnv("TENANT_DB_PORT")
	v.BindEnv("TENANT_DB_USER")
	v.BindEnv("TENANT_DB_PASSWORD")
	v.BindEnv("BASE_DOMAIN")
	v.BindEnv("DEV_TENANT_FALLBACK")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("DEFAULT_MODULES")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	if cfg.DefaultModules == nil {
		if mods := v.GetString("DEFAULT_MODULES"); mods != "" {
			cfg.DefaultModules = strings.Split(mods, ",")
		}
	}

	if cfg.RegistryURL == "" {
		return nil, fmt.Errorf("REGISTRY_DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: The first-active-hospital tenant fallback is enabled and")
		log.Println("WARNING: unauthenticated requests receive admin access.")
		log.Println("WARNING: Set ENV=production before deploying.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// TenantFallbackEnabled reports whether the first-active-hospital fallback may
// be used during tenant resolution. The fallback exists only to keep local and
// test environments usable without per-developer DNS; it is never honored in
// production regardless of DEV_TENANT_FALLBACK.
func (c *Config) TenantFallbackEnabled() bool {
	return c.DevTenantFallback && !c.IsProduction()
}

// Validate checks that the configuration is safe to run. Production requires
// real JWT configuration and refuses the dev tenant fallback.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "" && c.AuthIssuer == "" {
			return fmt.Errorf("JWT_SECRET or AUTH_ISSUER must be set in production. " +
				"Refusing to start without authentication configuration")
		}
		if c.BaseDomain == "" || c.BaseDomain == "localhost" {
			return fmt.Errorf("BASE_DOMAIN must be a real domain in production, got %q", c.BaseDomain)
		}
	}
	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.DBMaxConns, c.DBMinConns)
	}
	return nil
}
