package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

// SchemaFilter 写路径字段过滤器。
// 每次调用现读租户配置，禁用一个字段后下一次写入立即生效。
type SchemaFilter struct {
	fieldDefs repository.FieldDefsRepo
	logger    *zap.Logger
}

func NewSchemaFilter(fieldDefs repository.FieldDefsRepo, logger *zap.Logger) *SchemaFilter {
	return &SchemaFilter{fieldDefs: fieldDefs, logger: logger}
}

// FilterForCreate 创建路径：严格白名单。
// 只放行启用字段、豁免字段和关系ID字段，其余静默丢弃。
// 租户完全没有配置行时降级为宽松透传（老租户在配置表引入前就有数据）。
func (s *SchemaFilter) FilterForCreate(ctx context.Context, tenantID, recordType string, input map[string]any) (map[string]any, error) {
	return s.filter(ctx, tenantID, recordType, input)
}

// FilterForUpdate 更新路径：与创建同一套白名单。
// 调用方只发送它要改的字段，但禁用字段同样不能经由 PUT 写回。
func (s *SchemaFilter) FilterForUpdate(ctx context.Context, tenantID, recordType string, input map[string]any) (map[string]any, error) {
	return s.filter(ctx, tenantID, recordType, input)
}

func (s *SchemaFilter) filter(ctx context.Context, tenantID, recordType string, input map[string]any) (map[string]any, error) {
	spec, ok := domain.SpecFor(recordType)
	if !ok {
		return nil, domain.NewValidationError("unknown record type %q", recordType)
	}

	defs, err := s.fieldDefs.List(ctx, tenantID, recordType)
	if err != nil {
		return nil, err
	}

	if len(defs) == 0 {
		// 无配置租户：透传，只做空值归一和豁免字段强制转换
		s.logger.Debug("no field configuration, passing through",
			zap.String("tenant_id", tenantID),
			zap.String("record_type", recordType))
		return s.passthrough(spec, input), nil
	}

	allowed := map[string]bool{}
	for _, d := range defs {
		if d.IsEnabled {
			allowed[d.FieldName] = true
		}
	}
	for _, f := range spec.ExemptFields {
		allowed[f] = true
	}
	for _, f := range spec.RelationalIDFields {
		allowed[f] = true
	}

	out := map[string]any{}
	for name, value := range input {
		if !allowed[name] {
			continue
		}
		s.putNormalized(spec, out, name, value)
	}
	return out, nil
}

func (s *SchemaFilter) passthrough(spec domain.RecordTypeSpec, input map[string]any) map[string]any {
	out := map[string]any{}
	for name, value := range input {
		s.putNormalized(spec, out, name, value)
	}
	return out
}

// putNormalized 空串/纯空白归一为 NULL；豁免字段强制转换为字符串列表。
func (s *SchemaFilter) putNormalized(spec domain.RecordTypeSpec, out map[string]any, name string, value any) {
	for _, exempt := range spec.ExemptFields {
		if name == exempt {
			out[name] = coerceStringList(value)
			return
		}
	}
	if str, ok := value.(string); ok {
		if strings.TrimSpace(str) == "" {
			out[name] = nil
			return
		}
		out[name] = str
		return
	}
	out[name] = value
}

// coerceStringList 将任意形状的输入转换为字符串列表：
// 单个字符串视为单元素列表，逗号分隔的字符串拆开，空值为空列表。
func coerceStringList(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []string:
		return trimNonEmpty(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok {
				items = append(items, s)
			}
		}
		return trimNonEmpty(items)
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return trimNonEmpty(strings.Split(v, ","))
	default:
		return []string{}
	}
}

func trimNonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it != "" {
			out = append(out, it)
		}
	}
	return out
}
