package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

// RecordService 业务记录的交互式读写（列表/详情/创建/更新/删除）
type RecordService struct {
	records repository.RecordsRepo
	filter  *SchemaFilter
	logger  *zap.Logger
}

// NewRecordService 创建记录服务
func NewRecordService(records repository.RecordsRepo, filter *SchemaFilter, logger *zap.Logger) *RecordService {
	return &RecordService{records: records, filter: filter, logger: logger}
}

// List 分页查询记录
func (s *RecordService) List(ctx context.Context, tenantID, recordType string, filters repository.RecordFilters, page, size int) ([]map[string]any, int, error) {
	if tenantID == "" {
		return nil, 0, domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(recordType) {
		return nil, 0, domain.NewValidationError("unknown record type %q", recordType)
	}
	return s.records.Select(ctx, recordType, tenantID, filters, page, size)
}

// Get 按 id 查询单条记录
func (s *RecordService) Get(ctx context.Context, tenantID, recordType, id string) (map[string]any, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(recordType) {
		return nil, domain.NewValidationError("unknown record type %q", recordType)
	}
	return s.records.Get(ctx, recordType, tenantID, id)
}

// Create 交互式创建：严格字段过滤 + 自然键查重（命中即硬失败）。
func (s *RecordService) Create(ctx context.Context, tenantID, recordType string, input map[string]any) (map[string]any, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	spec, ok := domain.SpecFor(recordType)
	if !ok {
		return nil, domain.NewValidationError("unknown record type %q", recordType)
	}

	row, err := s.filter.FilterForCreate(ctx, tenantID, recordType, input)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return nil, domain.NewValidationError("no writable fields in request")
	}
	if recordType == domain.RecordTypeLead {
		splitLeadCustomFields(row)
	}

	// 自然键全部有值时才查重；部分键为空不拦截
	if key := naturalKeyValues(spec, row); key != nil {
		exists, err := s.records.Exists(ctx, recordType, tenantID, key)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, &domain.DuplicateRecordError{
				RecordType: recordType,
				Key:        keyString(spec.NaturalKey, key),
			}
		}
	}

	ids, err := s.records.Insert(ctx, recordType, tenantID, []map[string]any{row})
	if err != nil {
		return nil, err
	}
	s.logger.Info("record created",
		zap.String("tenant_id", tenantID),
		zap.String("record_type", recordType),
		zap.String("id", ids[0]))
	return s.records.Get(ctx, recordType, tenantID, ids[0])
}

// Update 过滤后按 id 更新
func (s *RecordService) Update(ctx context.Context, tenantID, recordType, id string, input map[string]any) (map[string]any, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(recordType) {
		return nil, domain.NewValidationError("unknown record type %q", recordType)
	}

	patch, err := s.filter.FilterForUpdate(ctx, tenantID, recordType, input)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, domain.NewValidationError("no writable fields in request")
	}
	if recordType == domain.RecordTypeLead {
		splitLeadCustomFields(patch)
	}
	return s.records.Update(ctx, recordType, tenantID, id, patch)
}

// Delete 删除记录。leads 同时清掉关联的 lead_products 行。
func (s *RecordService) Delete(ctx context.Context, tenantID, recordType, id string) error {
	if tenantID == "" {
		return domain.NewValidationError("tenant_id is required")
	}
	if !domain.KnownRecordType(recordType) {
		return domain.NewValidationError("unknown record type %q", recordType)
	}

	if recordType == domain.RecordTypeLead {
		if err := s.records.DeleteWhere(ctx, "lead_products", tenantID, map[string]any{"lead_id": id}); err != nil {
			s.logger.Warn("lead product cleanup failed",
				zap.String("lead_id", id), zap.Error(err))
		}
	}
	return s.records.Delete(ctx, recordType, tenantID, id)
}

// splitLeadCustomFields 把 leads 的非标准列挪进 custom_fields。
// 物理表只有标准列，租户自定义字段全部落在 custom_fields JSONB 里。
func splitLeadCustomFields(row map[string]any) {
	custom := map[string]any{}
	if existing, ok := row["custom_fields"].(map[string]any); ok {
		custom = existing
	}
	for name, value := range row {
		if name == "custom_fields" || name == "id" || domain.StandardLeadFields[name] {
			continue
		}
		custom[name] = value
		delete(row, name)
	}
	if len(custom) > 0 {
		row["custom_fields"] = custom
	}
}

// naturalKeyValues 提取自然键的非空字符串值；任一键字段缺失返回 nil。
func naturalKeyValues(spec domain.RecordTypeSpec, row map[string]any) map[string]any {
	if len(spec.NaturalKey) == 0 {
		return nil
	}
	key := map[string]any{}
	for _, field := range spec.NaturalKey {
		v, ok := row[field]
		if !ok || v == nil {
			return nil
		}
		str, ok := v.(string)
		if !ok || strings.TrimSpace(str) == "" {
			return nil
		}
		key[field] = str
	}
	return key
}

func keyString(fields []string, key map[string]any) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%v", key[f]))
	}
	return strings.Join(parts, " / ")
}
