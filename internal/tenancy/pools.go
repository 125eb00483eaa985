package tenancy

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/his/his/internal/platform/db"
	"github.com/his/his/internal/registry"
)

// PoolSource provides a live connection pool for a hospital's database.
type PoolSource interface {
	Get(ctx context.Context, h *registry.Hospital) (*pgxpool.Pool, error)
}

// PoolManager caches one pgx pool per hospital, keyed by hospital id. Pools
// are opened lazily from the connection parameters stored in the registry
// and shared by every request bound to that hospital.
type PoolManager struct {
	mu       sync.Mutex
	pools    map[int64]*pgxpool.Pool
	maxConns int32
}

// NewPoolManager creates a PoolManager whose per-tenant pools hold at most
// maxConns connections each.
func NewPoolManager(maxConns int32) *PoolManager {
	return &PoolManager{
		pools:    make(map[int64]*pgxpool.Pool),
		maxConns: maxConns,
	}
}

// Get returns the cached pool for the hospital, opening it on first use.
func (m *PoolManager) Get(ctx context.Context, h *registry.Hospital) (*pgxpool.Pool, error) {
	m.mu.Lock()
	if pool, ok := m.pools[h.ID]; ok {
		m.mu.Unlock()
		return pool, nil
	}
	m.mu.Unlock()

	// Open outside the lock; connection setup is blocking I/O.
	pool, err := db.NewPool(ctx, h.DSN(), m.maxConns, 0)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.pools[h.ID]; ok {
		// Lost the race with a concurrent opener.
		pool.Close()
		return existing, nil
	}
	m.pools[h.ID] = pool
	return pool, nil
}

// Evict closes and removes the cached pool for a hospital, e.g. after its
// connection parameters change or the tenant is suspended.
func (m *PoolManager) Evict(hospitalID int64) {
	m.mu.Lock()
	pool, ok := m.pools[hospitalID]
	delete(m.pools, hospitalID)
	m.mu.Unlock()
	if ok {
		pool.Close()
	}
}

// Close closes every cached pool. Called on shutdown.
func (m *PoolManager) Close() {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[int64]*pgxpool.Pool)
	m.mu.Unlock()
	for _, pool := range pools {
		pool.Close()
	}
}
