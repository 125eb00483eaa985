// Package onboarding handles hospital self-registration: it records the new
// hospital in the central registry and schedules asynchronous provisioning of
// its dedicated database.
package onboarding

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/his/his/internal/registry"
)

// RegisterRequest is the payload for hospital self-registration.
type RegisterRequest struct {
	Name       string  `json:"name" validate:"required,min=3,max=120"`
	AdminEmail string  `json:"admin_email" validate:"required,email"`
	AdminPhone *string `json:"admin_phone,omitempty" validate:"omitempty,min=6,max=32"`
	// Domain is optional; when empty it is derived as <slug>.<base domain>.
	Domain   string  `json:"domain,omitempty" validate:"omitempty,fqdn"`
	Plan     *string `json:"plan,omitempty"`
	Country  *string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	City     *string `json:"city,omitempty"`
	Language *string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// RegisterResponse is returned on successful registration. Provisioning runs
// in the background; clients poll the status endpoint with the UUID.
type RegisterResponse struct {
	UUID       uuid.UUID                 `json:"uuid"`
	Name       string                    `json:"name"`
	Slug       string                    `json:"slug"`
	Domain     string                    `json:"domain"`
	Status     registry.Status           `json:"status"`
	Onboarding registry.OnboardingStatus `json:"onboarding_status"`
}

// StatusResponse reports provisioning progress for a registered hospital.
type StatusResponse struct {
	UUID          uuid.UUID                 `json:"uuid"`
	Name          string                    `json:"name"`
	Status        registry.Status           `json:"status"`
	Onboarding    registry.OnboardingStatus `json:"onboarding_status"`
	ProvisionedAt *time.Time                `json:"provisioned_at,omitempty"`
	// LoginURL is populated once the hospital is provisioned.
	LoginURL string `json:"login_url,omitempty"`
}

// ConflictError reports which registration field collides with an existing
// hospital, so the client can surface a per-field message.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q is already registered", e.Field, e.Value)
}

// Slugify converts a hospital name to a URL- and identifier-safe slug:
// lowercase ASCII letters, digits, and single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	prevHyphen := true // trim leading hyphens
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// DeriveDomain builds the default tenant domain from a slug and the platform
// base domain.
func DeriveDomain(slug, baseDomain string) string {
	return slug + "." + baseDomain
}

// maxDBNameLen is PostgreSQL's identifier limit (NAMEDATALEN - 1). Names
// beyond it are silently truncated by the server, which would desync the
// registry row from the database actually created.
const maxDBNameLen = 63

// DeriveDBName builds the tenant database name from a slug. Hyphens become
// underscores so the name is a plain PostgreSQL identifier, and the result is
// clamped to the identifier limit.
func DeriveDBName(slug string) string {
	name := "his_" + strings.ReplaceAll(slug, "-", "_")
	if len(name) > maxDBNameLen {
		name = strings.TrimRight(name[:maxDBNameLen], "_")
	}
	return name
}
