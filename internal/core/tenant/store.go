package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"inventra/internal/core/id"
)

// Store provides access to tenant records.
type Store interface {
	// GetByID returns tenant by ID. Returns ErrTenantNotFound if missing.
	GetByID(ctx context.Context, tenantID string) (*Tenant, error)

	// GetBySlug returns tenant by slug.
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)

	// Create registers a new tenant.
	Create(ctx context.Context, input *CreateTenantInput) (*Tenant, error)

	// ListActive returns all active tenants.
	ListActive(ctx context.Context) ([]*Tenant, error)
}

// cacheEntry is a cached tenant with expiry.
type cacheEntry struct {
	tenant    *Tenant
	expiresAt time.Time
}

// PostgresStore reads tenants from the shared sys_tenants table.
// Lookups are cached in memory with a short TTL: the tenant row is read on
// every request by middleware, so a miss must not cost a round trip each time.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu    sync.RWMutex
	cache map[string]cacheEntry
	ttl   time.Duration
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a tenant store over the shared pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:  pool,
		cache: make(map[string]cacheEntry),
		ttl:   time.Minute,
	}
}

// GetByID returns tenant by ID, serving from cache when fresh.
func (s *PostgresStore) GetByID(ctx context.Context, tenantID string) (*Tenant, error) {
	s.mu.RLock()
	if entry, ok := s.cache[tenantID]; ok && time.Now().Before(entry.expiresAt) {
		s.mu.RUnlock()
		return entry.tenant, nil
	}
	s.mu.RUnlock()

	var t Tenant
	err := pgxscan.Get(ctx, s.pool, &t, `
		SELECT id, slug, display_name, status, plan, created_at, updated_at, settings
		FROM sys_tenants
		WHERE id = $1
	`, tenantID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}

	s.mu.Lock()
	s.cache[tenantID] = cacheEntry{tenant: &t, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return &t, nil
}

// GetBySlug returns tenant by slug (uncached, admin paths only).
func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	var t Tenant
	err := pgxscan.Get(ctx, s.pool, &t, `
		SELECT id, slug, display_name, status, plan, created_at, updated_at, settings
		FROM sys_tenants
		WHERE slug = $1
	`, slug)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant by slug: %w", err)
	}
	return &t, nil
}

// Create registers a new tenant.
func (s *PostgresStore) Create(ctx context.Context, input *CreateTenantInput) (*Tenant, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	plan := input.Plan
	if plan == "" {
		plan = PlanStandard
	}

	now := time.Now().UTC()
	t := &Tenant{
		ID:          id.New().String(),
		Slug:        input.Slug,
		DisplayName: input.DisplayName,
		Status:      StatusActive,
		Plan:        plan,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO sys_tenants (id, slug, display_name, status, plan, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.Slug, t.DisplayName, t.Status, t.Plan, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	return t, nil
}

// ListActive returns all active tenants (used by the background worker).
func (s *PostgresStore) ListActive(ctx context.Context) ([]*Tenant, error) {
	var tenants []*Tenant
	err := pgxscan.Select(ctx, s.pool, &tenants, `
		SELECT id, slug, display_name, status, plan, created_at, updated_at, settings
		FROM sys_tenants
		WHERE status = $1
		ORDER BY created_at
	`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active tenants: %w", err)
	}
	return tenants, nil
}

// Invalidate drops a tenant from cache (after status changes).
func (s *PostgresStore) Invalidate(tenantID string) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	s.mu.Unlock()
}
