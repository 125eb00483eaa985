package tenancy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/his/his/internal/registry"
)

// Headers consulted during tenant resolution.
const (
	HeaderHospitalID   = "X-Hospital-ID"
	HeaderTenantDomain = "X-Tenant-Domain"
	HeaderOriginalHost = "X-Original-Host"
)

// Request carries the tenant identification inputs extracted at the request
// boundary, in resolution priority order.
type Request struct {
	// HospitalID is an explicit numeric id, from the X-Hospital-ID header or
	// an upstream component (e.g. a JWT claim) that resolved the tenant
	// earlier in the same request.
	HospitalID string
	// TenantDomain overrides host-based lookup (reverse-proxy setups).
	TenantDomain string
	// OriginalHost overrides the literal request host (local subdomains
	// behind a proxy).
	OriginalHost string
	// Host is the literal request host, possibly with a port.
	Host string
}

// RequestFromHTTP extracts tenant identification inputs from an HTTP request.
func RequestFromHTTP(r *http.Request) Request {
	return Request{
		HospitalID:   r.Header.Get(HeaderHospitalID),
		TenantDomain: r.Header.Get(HeaderTenantDomain),
		OriginalHost: r.Header.Get(HeaderOriginalHost),
		Host:         r.Host,
	}
}

// Resolver maps a request to exactly one active hospital, or fails closed
// with ErrTenantNotResolved.
type Resolver struct {
	repo        registry.Repository
	devFallback bool
}

// NewResolver creates a Resolver. devFallback enables the first-active-
// hospital fallback and must be false in production.
func NewResolver(repo registry.Repository, devFallback bool) *Resolver {
	return &Resolver{repo: repo, devFallback: devFallback}
}

// Resolve applies the resolution chain: explicit hospital id, then domain
// lookup, then (dev only) the first active hospital. A hospital that matches
// but is not active fails the whole resolution — a suspended tenant must
// behave exactly like a missing one, and never fall through to another
// tenant's database.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*registry.Hospital, error) {
	if req.HospitalID != "" {
		id, err := strconv.ParseInt(req.HospitalID, 10, 64)
		if err != nil {
			return nil, ErrTenantNotResolved
		}
		h, err := r.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return nil, ErrTenantNotResolved
			}
			return nil, err
		}
		return r.checked(h)
	}

	if domain := req.domain(); domain != "" {
		h, err := r.repo.GetByDomain(ctx, domain)
		if err == nil {
			return r.checked(h)
		}
		if !errors.Is(err, registry.ErrNotFound) {
			return nil, err
		}
	}

	if r.devFallback {
		h, err := r.repo.FirstActive(ctx)
		if err == nil {
			return r.checked(h)
		}
		if !errors.Is(err, registry.ErrNotFound) {
			return nil, err
		}
	}

	return nil, ErrTenantNotResolved
}

func (r *Resolver) checked(h *registry.Hospital) (*registry.Hospital, error) {
	if !h.Resolvable() {
		return nil, ErrTenantNotResolved
	}
	return h, nil
}

// domain picks the lookup domain: the tenant-domain header, then the
// original-host header, then the request host, with any port stripped.
func (req Request) domain() string {
	host := req.TenantDomain
	if host == "" {
		host = req.OriginalHost
	}
	if host == "" {
		host = req.Host
	}
	return strings.ToLower(stripPort(host))
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
