package config

import (
	"os"
	"testing"
)

func TestLoad_RequiresRegistryURL(t *testing.T) {
	os.Unsetenv("REGISTRY_DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Error("expected error when REGISTRY_DATABASE_URL is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Setenv("REGISTRY_DATABASE_URL", "postgres://localhost/his_registry")
	defer os.Unsetenv("REGISTRY_DATABASE_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.TenantMaxConns != 10 {
		t.Errorf("expected default tenant max conns 10, got %d", cfg.TenantMaxConns)
	}
	if len(cfg.DefaultModules) != 5 {
		t.Errorf("expected 5 default modules, got %v", cfg.DefaultModules)
	}
}

func TestTenantFallbackEnabled(t *testing.T) {
	cases := []struct {
		env      string
		flag     bool
		expected bool
	}{
		{"development", true, true},
		{"development", false, false},
		{"staging", true, true},
		{"production", true, false},
		{"production", false, false},
	}
	for _, tc := range cases {
		cfg := &Config{Env: tc.env, DevTenantFallback: tc.flag}
		if got := cfg.TenantFallbackEnabled(); got != tc.expected {
			t.Errorf("env=%s flag=%v: expected %v, got %v", tc.env, tc.flag, tc.expected, got)
		}
	}
}

func TestValidate_ProductionRequiresAuth(t *testing.T) {
	cfg := &Config{Env: "production", BaseDomain: "hospitals.example.com", DBMaxConns: 20, DBMinConns: 5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for production config without auth")
	}

	cfg.JWTSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_ProductionRequiresRealBaseDomain(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "s", BaseDomain: "localhost", DBMaxConns: 20, DBMinConns: 5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for localhost base domain in production")
	}
}

func TestValidate_PoolBounds(t *testing.T) {
	cfg := &Config{Env: "development", DBMaxConns: 2, DBMinConns: 5}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when max conns < min conns")
	}
}
