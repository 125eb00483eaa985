package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// publicPaths lists URL paths that bypass authentication and tenant
// resolution: infrastructure endpoints and the onboarding surface, which by
// definition serves hospitals that do not have accounts yet.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/api/v1/onboarding/register": true,
}

// publicPrefixes covers public endpoints with path parameters.
var publicPrefixes = []string{
	"/api/v1/onboarding/status/",
}

// AuthSkipper returns true for requests whose path should skip
// authentication. Pass it as the Skipper on JWTConfig so health checks and
// onboarding remain accessible without a bearer token.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Request().URL.Path)
}

// IsPublicPath reports whether the given path is a public endpoint that
// bypasses auth and tenant middleware.
func IsPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
