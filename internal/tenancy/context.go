// Package tenancy maps incoming work — HTTP requests, queue jobs, CLI
// invocations — to exactly one hospital and its physical database.
//
// The HTTP path carries the resolved hospital and a live connection pool as
// request context values, so concurrent requests for different hospitals
// never share mutable state. The Context type exists for administrative
// tooling and queue workers that iterate across tenants inside one process.
package tenancy

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/his/his/internal/platform/db"
	"github.com/his/his/internal/registry"
)

var (
	// ErrTenantNotResolved is returned when no active hospital matches the
	// request by id, domain, or fallback.
	ErrTenantNotResolved = errors.New("tenant not resolved")
	// ErrNotConnected is returned when tenant-scoped code runs with no
	// hospital bound. Queries must fail loudly rather than hit a stale or
	// default database.
	ErrNotConnected = errors.New("no tenant database selected")
)

type ctxKey int

const (
	hospitalKey ctxKey = iota
	poolKey
	txKey
)

// WithTenant returns a context carrying the resolved hospital and its live
// connection pool. Everything downstream of the request pipeline reads the
// tenant binding from here.
func WithTenant(ctx context.Context, h *registry.Hospital, pool *pgxpool.Pool) context.Context {
	ctx = context.WithValue(ctx, hospitalKey, h)
	return context.WithValue(ctx, poolKey, pool)
}

// HospitalFromContext returns the bound hospital, or nil when none is bound.
func HospitalFromContext(ctx context.Context) *registry.Hospital {
	h, _ := ctx.Value(hospitalKey).(*registry.Hospital)
	return h
}

// HospitalIDFromContext returns the bound hospital's id, or 0 when unbound.
func HospitalIDFromContext(ctx context.Context) int64 {
	if h := HospitalFromContext(ctx); h != nil {
		return h.ID
	}
	return 0
}

// PoolFromContext returns the bound tenant pool, or nil when unbound.
func PoolFromContext(ctx context.Context) *pgxpool.Pool {
	p, _ := ctx.Value(poolKey).(*pgxpool.Pool)
	return p
}

// WithTx returns a context carrying an open transaction on the tenant
// database. Repositories prefer it over the pool.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// TxFromContext returns the transaction bound to the context, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}

// Conn returns the handle tenant-scoped queries must run on: an open
// transaction if one is bound, otherwise the tenant pool. It fails with
// ErrNotConnected when no tenant is bound so a missed binding surfaces
// immediately instead of querying the wrong database.
func Conn(ctx context.Context) (db.Queryable, error) {
	if tx := TxFromContext(ctx); tx != nil {
		return tx, nil
	}
	if pool := PoolFromContext(ctx); pool != nil {
		return pool, nil
	}
	return nil, ErrNotConnected
}

// Context is the mutable tenant binding used by CLI tooling, provisioning
// workers, and test harnesses that operate on many tenants within one
// process lifetime. At most one hospital is bound at a time; Connect with
// the same hospital is a no-op and Connect with a different one replaces
// the binding.
type Context struct {
	mu       sync.Mutex
	pools    PoolSource
	hospital *registry.Hospital
	pool     *pgxpool.Pool
}

// NewContext creates an unbound Context drawing tenant pools from pools.
func NewContext(pools PoolSource) *Context {
	return &Context{pools: pools}
}

// Connect binds the given hospital as the current tenant. The hospital must
// be active. Rebinding to the same hospital is idempotent; rebinding to a
// different hospital replaces the previous binding.
func (c *Context) Connect(ctx context.Context, h *registry.Hospital) error {
	if !h.Resolvable() {
		return ErrTenantNotResolved
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hospital != nil && c.hospital.ID == h.ID {
		return nil
	}

	pool, err := c.pools.Get(ctx, h)
	if err != nil {
		return err
	}

	c.hospital = h
	c.pool = pool
	return nil
}

// IsConnected reports whether a hospital is currently bound.
func (c *Context) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hospital != nil
}

// CurrentHospital returns the bound hospital, or nil.
func (c *Context) CurrentHospital() *registry.Hospital {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hospital
}

// CurrentHospitalID returns the bound hospital's id, or 0.
func (c *Context) CurrentHospitalID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hospital == nil {
		return 0
	}
	return c.hospital.ID
}

// CurrentPool returns the live tenant pool, or nil.
func (c *Context) CurrentPool() *pgxpool.Pool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pool
}

// Disconnect clears the binding. Any subsequent tenant-scoped query through
// Bind/Conn fails with ErrNotConnected.
func (c *Context) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hospital = nil
	c.pool = nil
}

// Bind injects the current binding into ctx for repository calls. It returns
// ErrNotConnected when no hospital is bound.
func (c *Context) Bind(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hospital == nil {
		return ctx, ErrNotConnected
	}
	return WithTenant(ctx, c.hospital, c.pool), nil
}
