package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

// TemplateService 导入模板生成和数据导出。
// 列集合来自租户当前启用的字段配置，系统生成字段永远不出现在模板里。
type TemplateService struct {
	records   repository.RecordsRepo
	fieldDefs repository.FieldDefsRepo
	logger    *zap.Logger
}

// NewTemplateService 创建模板服务
func NewTemplateService(records repository.RecordsRepo, fieldDefs repository.FieldDefsRepo, logger *zap.Logger) *TemplateService {
	return &TemplateService{records: records, fieldDefs: fieldDefs, logger: logger}
}

// templateColumn 模板/导出的一列
type templateColumn struct {
	fieldName string
	label     string
	def       *domain.FieldDefinition // synthetic 列为 nil
}

// columnsFor 计算一个租户一种记录类型的列集合。
// 无配置租户回退到默认字段集。leads 额外追加两列产品关联合成列。
func (s *TemplateService) columnsFor(ctx context.Context, tenantID, recordType string) ([]templateColumn, error) {
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

	system := map[string]bool{}
	for _, f := range spec.SystemFields {
		system[f] = true
	}
	for _, f := range spec.RelationalIDFields {
		system[f] = true
	}

	cols := make([]templateColumn, 0, len(defs)+2)
	for _, d := range defs {
		if system[d.FieldName] {
			continue
		}
		cols = append(cols, templateColumn{fieldName: d.FieldName, label: d.FieldLabel, def: d})
	}

	if recordType == domain.RecordTypeLead {
		cols = append(cols,
			templateColumn{fieldName: domain.LeadProductNamesField, label: domain.LeadProductNamesLabel},
			templateColumn{fieldName: domain.LeadProductQuantitiesField, label: domain.LeadProductQuantitiesLabel},
		)
	}
	return cols, nil
}

// GenerateTemplate 生成导入模板：表头 + 一行示例数据
func (s *TemplateService) GenerateTemplate(ctx context.Context, tenantID, recordType string) ([]byte, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	cols, err := s.columnsFor(ctx, tenantID, recordType)
	if err != nil {
		return nil, err
	}

	sample := make([]any, len(cols))
	for i, c := range cols {
		sample[i] = sampleValue(c)
	}
	return s.writeWorkbook(recordType, cols, [][]any{sample})
}

// Export 导出一个记录类型的全部数据（按启用字段裁剪列）
func (s *TemplateService) Export(ctx context.Context, tenantID, recordType string) ([]byte, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	cols, err := s.columnsFor(ctx, tenantID, recordType)
	if err != nil {
		return nil, err
	}

	// 分页拉全量，避免一次性大 LIMIT
	const pageSize = 500
	dataRows := [][]any{}
	for page := 1; ; page++ {
		records, total, err := s.records.Select(ctx, recordType, tenantID, repository.RecordFilters{}, page, pageSize)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			row := make([]any, len(cols))
			for i, c := range cols {
				row[i] = exportCell(rec, c.fieldName)
			}
			dataRows = append(dataRows, row)
		}
		if page*pageSize >= total || len(records) == 0 {
			break
		}
	}
	return s.writeWorkbook(recordType, cols, dataRows)
}

// sampleValue 示例行的占位值：select 用第一个选项，类型字段给出格式示范
func sampleValue(c templateColumn) any {
	if c.fieldName == domain.LeadProductNamesField {
		return "Product A, Product B"
	}
	if c.fieldName == domain.LeadProductQuantitiesField {
		return "2, 5"
	}
	if c.def == nil {
		return "Sample " + c.label
	}
	switch c.def.FieldType {
	case domain.FieldTypeSelect:
		if len(c.def.FieldOptions) > 0 {
			return c.def.FieldOptions[0]
		}
		return "Sample " + c.label
	case domain.FieldTypeEmail:
		return "example@company.com"
	case domain.FieldTypePhone:
		return "+91 98765 43210"
	case domain.FieldTypeNumber:
		return "0"
	case domain.FieldTypeDate:
		return todayISO()
	default:
		return "Sample " + c.label
	}
}

// exportCell 单元格取值；列表值折叠成逗号分隔串
func exportCell(rec map[string]any, fieldName string) any {
	v, ok := rec[fieldName]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case []string:
		return joinComma(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, it := range val {
			items = append(items, fmt.Sprintf("%v", it))
		}
		return joinComma(items)
	default:
		return val
	}
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}

// writeWorkbook 写出一个带样式表头、冻结首行的工作簿
func (s *TemplateService) writeWorkbook(recordType string, cols []templateColumn, dataRows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := sheetNameFor(recordType)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, c := range cols {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, c.label); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		colName, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		width := float64(len(c.label)) + 8
		if width < 15 {
			width = 15
		}
		if err := f.SetColWidth(sheetName, colName, colName, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, row := range dataRows {
		for colIdx, value := range row {
			if value == nil || value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	// 冻结表头
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func sheetNameFor(recordType string) string {
	switch recordType {
	case domain.RecordTypeAccount:
		return "Accounts"
	case domain.RecordTypeContact:
		return "Contacts"
	case domain.RecordTypeLead:
		return "Leads"
	case domain.RecordTypeProduct:
		return "Products"
	default:
		return "Data"
	}
}
