package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

// FieldConfigService 租户字段配置管理
type FieldConfigService struct {
	fieldDefs repository.FieldDefsRepo
	logger    *zap.Logger
}

// NewFieldConfigService 创建字段配置服务
func NewFieldConfigService(fieldDefs repository.FieldDefsRepo, logger *zap.Logger) *FieldConfigService {
	return &FieldConfigService{fieldDefs: fieldDefs, logger: logger}
}

var validFieldTypes = map[string]bool{
	domain.FieldTypeText:   true,
	domain.FieldTypeEmail:  true,
	domain.FieldTypePhone:  true,
	domain.FieldTypeNumber: true,
	domain.FieldTypeDate:   true,
	domain.FieldTypeSelect: true,
}

// List 返回一个记录类型的全部字段配置（含禁用的，管理界面用）
func (s *FieldConfigService) List(ctx context.Context, tenantID, recordType string) ([]*domain.FieldDefinition, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(recordType) {
		return nil, domain.NewValidationError("unknown record type %q", recordType)
	}
	return s.fieldDefs.List(ctx, tenantID, recordType)
}

// Upsert 创建或替换一条字段配置
func (s *FieldConfigService) Upsert(ctx context.Context, def *domain.FieldDefinition) (*domain.FieldDefinition, error) {
	if def.TenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(def.RecordType) {
		return nil, domain.NewValidationError("unknown record type %q", def.RecordType)
	}
	if def.FieldName == "" {
		return nil, domain.NewValidationError("field_name is required")
	}
	if def.FieldLabel == "" {
		return nil, domain.NewValidationError("field_label is required")
	}
	if def.FieldType == "" {
		def.FieldType = domain.FieldTypeText
	}
	if !validFieldTypes[def.FieldType] {
		return nil, domain.NewValidationError("unknown field type %q", def.FieldType)
	}
	if def.FieldType == domain.FieldTypeSelect && len(def.FieldOptions) == 0 {
		return nil, domain.NewValidationError("select field %q needs at least one option", def.FieldName)
	}

	if err := s.fieldDefs.Upsert(ctx, def); err != nil {
		s.logger.Error("upsert field definition failed",
			zap.String("tenant_id", def.TenantID),
			zap.String("field_name", def.FieldName),
			zap.Error(err))
		return nil, err
	}
	return s.fieldDefs.Get(ctx, def.TenantID, def.RecordType, def.FieldName)
}

// SetEnabled 启用/禁用一个字段。必填字段禁用会被拒绝。
func (s *FieldConfigService) SetEnabled(ctx context.Context, tenantID, recordType, fieldName string, enabled bool) error {
	if tenantID == "" {
		return domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(recordType) {
		return domain.NewValidationError("unknown record type %q", recordType)
	}
	return s.fieldDefs.SetEnabled(ctx, tenantID, recordType, fieldName, enabled)
}

// BulkUpdate 批量更新：逐项独立应用，单项失败不影响其它项。
// 返回的结果与输入顺序一致。
func (s *FieldConfigService) BulkUpdate(ctx context.Context, tenantID, recordType string, updates []domain.FieldUpdate) ([]domain.FieldUpdateResult, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(recordType) {
		return nil, domain.NewValidationError("unknown record type %q", recordType)
	}

	results := make([]domain.FieldUpdateResult, 0, len(updates))
	for _, upd := range updates {
		res := domain.FieldUpdateResult{FieldName: upd.FieldName, OK: true}
		if upd.FieldName == "" {
			res.OK = false
			res.Error = "field_name is required"
		} else if err := s.fieldDefs.ApplyUpdate(ctx, tenantID, recordType, upd); err != nil {
			res.OK = false
			res.Error = err.Error()
			s.logger.Warn("bulk field update item failed",
				zap.String("tenant_id", tenantID),
				zap.String("field_name", upd.FieldName),
				zap.Error(err))
		}
		results = append(results, res)
	}
	return results, nil
}

// SeedDefaults 为租户写入全部记录类型的默认字段配置（provision 时调用）
func (s *FieldConfigService) SeedDefaults(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return domain.NewValidationError("tenant_id is required")
	}
	for _, recordType := range domain.RecordTypes() {
		defs := DefaultFieldDefinitions(recordType)
		for _, d := range defs {
			d.TenantID = tenantID
		}
		if err := s.fieldDefs.SeedDefaults(ctx, tenantID, defs); err != nil {
			return fmt.Errorf("seed %s defaults: %w", recordType, err)
		}
	}
	s.logger.Info("seeded default field definitions", zap.String("tenant_id", tenantID))
	return nil
}
