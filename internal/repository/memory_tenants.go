package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"recordhub-data/internal/domain"
)

// MemoryTenantsRepo 内存租户Repository（DB不可用时的降级实现，也用于测试）
type MemoryTenantsRepo struct {
	mu      sync.RWMutex
	tenants map[string]*domain.Tenant
}

// NewMemoryTenantsRepo 创建内存租户Repository
func NewMemoryTenantsRepo() *MemoryTenantsRepo {
	return &MemoryTenantsRepo{tenants: map[string]*domain.Tenant{}}
}

var _ TenantsRepo = (*MemoryTenantsRepo)(nil)

func (r *MemoryTenantsRepo) GetTenant(_ context.Context, tenantID string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryTenantsRepo) ListTenants(_ context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.Tenant{}
	for _, t := range r.tenants {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.TenantName), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].TenantName < matched[j].TenantName })

	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []*domain.Tenant{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryTenantsRepo) CreateTenant(_ context.Context, tenant *domain.Tenant) (string, error) {
	if tenant.TenantName == "" {
		return "", domain.NewValidationError("tenant_name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *tenant
	cp.TenantID = uuid.New().String()
	if cp.Status == "" {
		cp.Status = "active"
	}
	r.tenants[cp.TenantID] = &cp
	return cp.TenantID, nil
}

func (r *MemoryTenantsRepo) SetTenantStatus(_ context.Context, tenantID string, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok {
		return sql.ErrNoRows
	}
	t.Status = status
	return nil
}
