package tenancy

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/his/his/internal/platform/db"
)

// Module enablement is recorded per tenant in the hospital_modules table of
// the tenant's own database. Provisioning seeds the default set; operators
// can toggle modules per hospital afterwards.

// ModuleEnabled reports whether the named module is enabled for the bound
// tenant.
func ModuleEnabled(ctx context.Context, q db.Queryable, name string) (bool, error) {
	var enabled bool
	err := q.QueryRow(ctx,
		`SELECT enabled FROM hospital_modules WHERE name = $1`, name).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}

// EnableModule records a module as enabled, creating the record if absent.
func EnableModule(ctx context.Context, q db.Queryable, name string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO hospital_modules (name, enabled) VALUES ($1, TRUE)
		ON CONFLICT (name) DO UPDATE SET enabled = TRUE, updated_at = NOW()`, name)
	return err
}

// DisableModule records a module as disabled. Missing records stay missing;
// a module that was never activated is already disabled.
func DisableModule(ctx context.Context, q db.Queryable, name string) error {
	_, err := q.Exec(ctx,
		`UPDATE hospital_modules SET enabled = FALSE, updated_at = NOW() WHERE name = $1`, name)
	return err
}

// ListModules returns the module-enablement records of the bound tenant.
func ListModules(ctx context.Context, q db.Queryable) (map[string]bool, error) {
	rows, err := q.Query(ctx, `SELECT name, enabled FROM hospital_modules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := make(map[string]bool)
	for rows.Next() {
		var name string
		var enabled bool
		if err := rows.Scan(&name, &enabled); err != nil {
			return nil, err
		}
		modules[name] = enabled
	}
	return modules, rows.Err()
}

// RequireModule rejects requests for hospitals that have not enabled the
// named module.
func RequireModule(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			q, err := Conn(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "no tenant database selected")
			}
			enabled, err := ModuleEnabled(ctx, q, name)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "module lookup failed")
			}
			if !enabled {
				return echo.NewHTTPError(http.StatusForbidden, "module not enabled for this hospital")
			}
			return next(c)
		}
	}
}
