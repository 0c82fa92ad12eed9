package service

import (
	"context"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

// TenantService 租户开通和管理。
// 开通 = 建租户行 + 写入默认字段配置，让新租户立刻能走严格过滤路径。
type TenantService struct {
	tenants     repository.TenantsRepo
	fieldConfig *FieldConfigService
	logger      *zap.Logger
}

// NewTenantService 创建租户服务
func NewTenantService(tenants repository.TenantsRepo, fieldConfig *FieldConfigService, logger *zap.Logger) *TenantService {
	return &TenantService{tenants: tenants, fieldConfig: fieldConfig, logger: logger}
}

// Get 查询单个租户
func (s *TenantService) Get(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return s.tenants.GetTenant(ctx, tenantID)
}

// List 分页查询租户
func (s *TenantService) List(ctx context.Context, filter repository.TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	return s.tenants.ListTenants(ctx, filter, page, size)
}

// Provision 开通租户并写入默认字段配置
func (s *TenantService) Provision(ctx context.Context, tenant *domain.Tenant) (*domain.Tenant, error) {
	id, err := s.tenants.CreateTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if err := s.fieldConfig.SeedDefaults(ctx, id); err != nil {
		// 租户行已存在，seed 可以事后重试；不回滚
		s.logger.Error("seed defaults failed for new tenant",
			zap.String("tenant_id", id), zap.Error(err))
		return nil, err
	}
	s.logger.Info("tenant provisioned", zap.String("tenant_id", id), zap.String("tenant_name", tenant.TenantName))
	return s.tenants.GetTenant(ctx, id)
}

// SetStatus 更新租户状态
func (s *TenantService) SetStatus(ctx context.Context, tenantID, status string) error {
	switch status {
	case "active", "suspended", "deleted":
	default:
		return domain.NewValidationError("unknown tenant status %q", status)
	}
	return s.tenants.SetTenantStatus(ctx, tenantID, status)
}
