package repository

import (
	"context"

	"recordhub-data/internal/domain"
)

// TenantsRepo 租户Repository接口
// 租户是所有业务数据的隔离边界，provision时需要配套写入默认字段配置
type TenantsRepo interface {
	// GetTenant 根据tenant_id获取租户信息
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)

	// ListTenants 查询租户列表（支持分页、过滤、搜索）
	ListTenants(ctx context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error)

	// CreateTenant 创建新租户，返回生成的tenant_id
	// 注意：domain唯一性约束由数据库保证
	CreateTenant(ctx context.Context, tenant *domain.Tenant) (string, error)

	// SetTenantStatus 更新租户状态（active/suspended/deleted）
	SetTenantStatus(ctx context.Context, tenantID string, status string) error
}

// TenantFilters 租户查询过滤器
type TenantFilters struct {
	Status string // 可选，按status过滤
	Search string // 可选，按tenant_name模糊匹配
}
