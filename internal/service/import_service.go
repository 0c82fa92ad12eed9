package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

// ImportService 批量 Excel 导入。
// 一次上传 = 一个作业，单 goroutine 顺序处理：解析、表头映射、净化、
// 查重、分批写入。部分失败不是异常，汇总在 ImportResult 里返回。
type ImportService struct {
	records   repository.RecordsRepo
	fieldDefs repository.FieldDefsRepo
	batchSize int
	notifier  *WebhookNotifier // 可选
	logger    *zap.Logger
}

// NewImportService 创建导入服务。batchSize <= 0 时用默认值 50。
func NewImportService(records repository.RecordsRepo, fieldDefs repository.FieldDefsRepo, batchSize int, notifier *WebhookNotifier, logger *zap.Logger) *ImportService {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &ImportService{
		records:   records,
		fieldDefs: fieldDefs,
		batchSize: batchSize,
		notifier:  notifier,
		logger:    logger,
	}
}

// pendingRow 一条通过了净化和查重、等待入库的行
type pendingRow struct {
	fields map[string]any

	// lead 导入的产品关联（写完 leads 后配对写入 lead_products）
	productNames      []string
	productQuantities []string
}

// Import 执行一次导入作业
func (s *ImportService) Import(ctx context.Context, tenantID, recordType string, file []byte) (*domain.ImportResult, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	spec, ok := domain.SpecFor(recordType)
	if !ok {
		return nil, domain.NewValidationError("unknown record type %q", recordType)
	}

	defs, err := s.fieldDefs.ListEnabled(ctx, tenantID, recordType)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		defs = DefaultFieldDefinitions(recordType)
	}

	rows, err := s.parseWorkbook(file)
	if err != nil {
		return nil, err
	}

	mapped := s.mapRows(recordType, defs, rows)
	if len(mapped) == 0 {
		return nil, domain.ErrNoValidRows
	}

	result := domain.NewImportResult()
	result.Total = len(mapped)

	pending, err := s.sanitizeAndDedupe(ctx, tenantID, recordType, spec, defs, mapped, result)
	if err != nil {
		return nil, err
	}

	s.loadBatches(ctx, tenantID, recordType, pending, result)

	s.logger.Info("import finished",
		zap.String("tenant_id", tenantID),
		zap.String("record_type", recordType),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed_batches", len(result.Errors)))

	if s.notifier != nil {
		s.notifier.ImportCompleted(tenantID, recordType, result)
	}
	return result, nil
}

// parseWorkbook 打开第一个 sheet 并返回全部行。
// 少于2行（只有表头或完全为空）返回 ErrEmptyFile。
func (s *ImportService) parseWorkbook(file []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(file))
	if err != nil {
		return nil, domain.NewValidationError("failed to parse Excel file: %v", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, domain.ErrEmptyFile
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, domain.NewValidationError("failed to read rows: %v", err)
	}
	if len(rows) < 2 {
		return nil, domain.ErrEmptyFile
	}
	return rows, nil
}

// mapRows 表头映射 + 行物化。
// 表头按启用字段的 label 或 field_name 匹配（大小写不敏感），
// 匹配不上的列丢弃。全空行直接丢掉。
func (s *ImportService) mapRows(recordType string, defs []*domain.FieldDefinition, rows [][]string) []map[string]string {
	colField := map[int]string{}
	for i, header := range rows[0] {
		if name := resolveHeader(recordType, defs, header); name != "" {
			colField[i] = name
		}
	}

	mapped := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		item := map[string]string{}
		empty := true
		for col, fieldName := range colField {
			if col >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[col])
			if value == "" {
				continue
			}
			item[fieldName] = value
			empty = false
		}
		if !empty {
			mapped = append(mapped, item)
		}
	}
	return mapped
}

// resolveHeader 单个表头到 field_name 的解析
func resolveHeader(recordType string, defs []*domain.FieldDefinition, header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return ""
	}
	if recordType == domain.RecordTypeLead {
		switch h {
		case strings.ToLower(domain.LeadProductNamesLabel):
			return domain.LeadProductNamesField
		case strings.ToLower(domain.LeadProductQuantitiesLabel):
			return domain.LeadProductQuantitiesField
		}
	}
	for _, d := range defs {
		if strings.ToLower(d.FieldLabel) == h || strings.ToLower(d.FieldName) == h {
			return d.FieldName
		}
	}
	return ""
}

// sanitizeAndDedupe 逐行净化并查重，产出待入库行。
// 识别字段为空的行跳过；导入键在文件内或库里已出现的行跳过并记入 duplicates。
func (s *ImportService) sanitizeAndDedupe(ctx context.Context, tenantID, recordType string, spec domain.RecordTypeSpec, defs []*domain.FieldDefinition, mapped []map[string]string, result *domain.ImportResult) ([]pendingRow, error) {
	fieldTypes := map[string]string{}
	for _, d := range defs {
		fieldTypes[d.FieldName] = d.FieldType
	}

	seen := map[string]bool{}
	pending := make([]pendingRow, 0, len(mapped))

	for _, raw := range mapped {
		if spec.IdentifyingField != "" && raw[spec.IdentifyingField] == "" {
			result.Skipped++
			continue
		}

		if spec.ImportKey != "" {
			key := raw[spec.ImportKey]
			if seen[key] {
				result.Skipped++
				result.Duplicates = append(result.Duplicates, key)
				continue
			}
			exists, err := s.records.Exists(ctx, recordType, tenantID, map[string]any{spec.ImportKey: key})
			if err != nil {
				return nil, err
			}
			if exists {
				seen[key] = true
				result.Skipped++
				result.Duplicates = append(result.Duplicates, key)
				continue
			}
			seen[key] = true
		}

		pending = append(pending, s.buildRow(recordType, spec, fieldTypes, raw))
	}
	return pending, nil
}

// buildRow 字段级净化 + 记录类型特有的整形（leads 的 custom_fields 拆分和产品列摘出）
func (s *ImportService) buildRow(recordType string, spec domain.RecordTypeSpec, fieldTypes map[string]string, raw map[string]string) pendingRow {
	p := pendingRow{fields: map[string]any{}}
	customFields := map[string]any{}

	for name, value := range raw {
		if recordType == domain.RecordTypeLead {
			switch name {
			case domain.LeadProductNamesField:
				p.productNames = trimNonEmpty(strings.Split(value, ","))
				continue
			case domain.LeadProductQuantitiesField:
				p.productQuantities = trimNonEmpty(strings.Split(value, ","))
				continue
			}
		}

		sanitized := s.sanitizeValue(spec, fieldTypes, name, value)
		if sanitized == nil {
			continue
		}

		if recordType == domain.RecordTypeLead && !domain.StandardLeadFields[name] {
			customFields[name] = sanitized
			continue
		}
		p.fields[name] = sanitized
	}

	if len(customFields) > 0 {
		p.fields["custom_fields"] = customFields
	}
	return p
}

func (s *ImportService) sanitizeValue(spec domain.RecordTypeSpec, fieldTypes map[string]string, name, value string) any {
	for _, exempt := range spec.ExemptFields {
		if name == exempt {
			items := coerceStringList(value)
			for i, it := range items {
				items[i] = normalizeIndustry(it)
			}
			return items
		}
	}
	switch fieldTypes[name] {
	case domain.FieldTypeDate:
		return normalizeDate(value)
	case domain.FieldTypePhone:
		return normalizePhone(value)
	default:
		return value
	}
}

// loadBatches 分批写入。一个批次整体失败时：
//   - 唯一键冲突（并发作业抢先写入）降级为逐行插入，冲突行按重复跳过；
//   - 其它错误记一条 BatchError，继续下一批。
func (s *ImportService) loadBatches(ctx context.Context, tenantID, recordType string, pending []pendingRow, result *domain.ImportResult) {
	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]
		batchNo := start/s.batchSize + 1

		rows := make([]map[string]any, len(batch))
		for i, p := range batch {
			rows[i] = p.fields
		}

		ids, err := s.records.Insert(ctx, recordType, tenantID, rows)
		if err != nil {
			if domain.IsDuplicate(err) {
				s.salvageBatch(ctx, tenantID, recordType, batch, result, batchNo)
				continue
			}
			s.logger.Error("batch insert failed",
				zap.String("record_type", recordType),
				zap.Int("batch", batchNo),
				zap.Error(err))
			result.Errors = append(result.Errors, domain.BatchError{
				Batch:   batchNo,
				Message: err.Error(),
			})
			continue
		}

		result.Imported += len(batch)
		if recordType == domain.RecordTypeLead {
			s.insertLeadProducts(ctx, tenantID, batch, ids, result, batchNo)
		}
	}
}

// salvageBatch 批量插入撞了唯一键后的逐行兜底，错误仍记在原批次号下
func (s *ImportService) salvageBatch(ctx context.Context, tenantID, recordType string, batch []pendingRow, result *domain.ImportResult, batchNo int) {
	for _, p := range batch {
		ids, err := s.records.Insert(ctx, recordType, tenantID, []map[string]any{p.fields})
		if err != nil {
			if domain.IsDuplicate(err) {
				result.Skipped++
				if spec, ok := domain.SpecFor(recordType); ok && spec.ImportKey != "" {
					if key, ok := p.fields[spec.ImportKey].(string); ok {
						result.Duplicates = append(result.Duplicates, key)
					}
				}
				continue
			}
			result.Errors = append(result.Errors, domain.BatchError{Batch: batchNo, Message: err.Error()})
			continue
		}
		result.Imported++
		if recordType == domain.RecordTypeLead {
			s.insertLeadProducts(ctx, tenantID, []pendingRow{p}, ids, result, batchNo)
		}
	}
}

// insertLeadProducts 按位置配对 productNames / productQuantities 并写入关联表。
// 数量列短于名称列时缺口按 1 计；product_id 按名称尽力解析，解析不到保留名称。
func (s *ImportService) insertLeadProducts(ctx context.Context, tenantID string, batch []pendingRow, leadIDs []string, result *domain.ImportResult, batchNo int) {
	assocRows := []map[string]any{}
	for i, p := range batch {
		if len(p.productNames) == 0 || i >= len(leadIDs) {
			continue
		}
		for j, name := range p.productNames {
			quantity := 1.0
			if j < len(p.productQuantities) {
				if q, err := strconv.ParseFloat(p.productQuantities[j], 64); err == nil && q > 0 {
					quantity = q
				}
			}
			row := map[string]any{
				"lead_id":      leadIDs[i],
				"product_name": name,
				"quantity":     quantity,
			}
			if id := s.lookupProductID(ctx, tenantID, name); id != "" {
				row["product_id"] = id
			}
			assocRows = append(assocRows, row)
		}
	}
	if len(assocRows) == 0 {
		return
	}
	if _, err := s.records.Insert(ctx, "lead_products", tenantID, assocRows); err != nil {
		s.logger.Error("lead product association insert failed",
			zap.Int("batch", batchNo), zap.Error(err))
		result.Errors = append(result.Errors, domain.BatchError{
			Batch:   batchNo,
			Message: fmt.Sprintf("lead products: %v", err),
		})
	}
}

func (s *ImportService) lookupProductID(ctx context.Context, tenantID, productName string) string {
	rows, _, err := s.records.Select(ctx, domain.RecordTypeProduct, tenantID, repository.RecordFilters{
		Equals: map[string]string{"product_name": productName},
	}, 1, 1)
	if err != nil || len(rows) == 0 {
		return ""
	}
	if id, ok := rows[0]["id"].(string); ok {
		return id
	}
	return ""
}
