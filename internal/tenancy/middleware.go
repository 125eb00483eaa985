package tenancy

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Middleware resolves the target hospital for each request and binds it,
// together with a live pool for its database, into the request context. It
// runs before any tenant-scoped handler; on resolution failure the request
// is rejected with 503 so clients can tell "no such tenant" from an
// application bug.
//
// If an upstream component (the auth provider) has already bound a tenant,
// the middleware is a no-op — resolution is idempotent.
func Middleware(resolver *Resolver, pools PoolSource) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if HospitalFromContext(ctx) != nil {
				return next(c)
			}

			req := RequestFromHTTP(c.Request())
			// An upstream auth layer may have put the hospital id on the
			// echo context before the header-based chain runs.
			if req.HospitalID == "" {
				if hid, ok := c.Get("jwt_hospital_id").(string); ok {
					req.HospitalID = hid
				}
			}

			h, err := resolver.Resolve(ctx, req)
			if err != nil {
				if errors.Is(err, ErrTenantNotResolved) {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "no hospital resolved for this request")
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "hospital registry unavailable")
			}

			pool, err := pools.Get(ctx, h)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "tenant database unavailable")
			}

			ctx = WithTenant(ctx, h, pool)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("hospital_id", h.ID)
			c.Set("hospital_slug", h.Slug)

			return next(c)
		}
	}
}
