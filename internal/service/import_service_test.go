package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

type importFixture struct {
	records   *repository.MemoryRecordsRepo
	fieldDefs *repository.MemoryFieldDefsRepo
	importer  *ImportService
	templates *TemplateService
}

func newImportFixture(t *testing.T, batchSize int) *importFixture {
	t.Helper()
	records := repository.NewMemoryRecordsRepo()
	fieldDefs := repository.NewMemoryFieldDefsRepo()
	for _, recordType := range domain.RecordTypes() {
		defs := DefaultFieldDefinitions(recordType)
		for _, d := range defs {
			d.TenantID = testTenant
		}
		require.NoError(t, fieldDefs.SeedDefaults(context.Background(), testTenant, defs))
	}
	return &importFixture{
		records:   records,
		fieldDefs: fieldDefs,
		importer:  NewImportService(records, fieldDefs, batchSize, nil, zap.NewNop()),
		templates: NewTemplateService(records, fieldDefs, zap.NewNop()),
	}
}

// buildWorkbook 按表头和数据行构造一个 xlsx
func buildWorkbook(t *testing.T, headers []string, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, h))
	}
	for rowIdx, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func TestImport_HeaderOnlyFileIsEmptyFile(t *testing.T) {
	fx := newImportFixture(t, 50)
	file := buildWorkbook(t, []string{"Account Name", "Phone"}, nil)

	_, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.ErrorIs(t, err, domain.ErrEmptyFile)
}

func TestImport_AllEmptyRowsIsNoValidRows(t *testing.T) {
	fx := newImportFixture(t, 50)
	file := buildWorkbook(t, []string{"Account Name", "Phone"}, [][]string{
		{"", ""},
		{"   ", ""},
	})

	_, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.ErrorIs(t, err, domain.ErrNoValidRows)
}

func TestImport_RoundTripWithGeneratedTemplate(t *testing.T) {
	fx := newImportFixture(t, 50)

	tpl, err := fx.templates.GenerateTemplate(context.Background(), testTenant, domain.RecordTypeAccount)
	require.NoError(t, err)

	// 读出模板表头，按它填一行数据
	f, err := excelize.OpenReader(bytes.NewReader(tpl))
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NotEmpty(t, rows)
	headers := rows[0]

	dataRow := make([]string, len(headers))
	for i, h := range headers {
		switch h {
		case "Account Name":
			dataRow[i] = "Helix Biosciences"
		case "Industries":
			dataRow[i] = "Dairy"
		case "Phone":
			dataRow[i] = "+91   98765  43210"
		case "Billing City":
			dataRow[i] = "Pune"
		}
	}

	file := buildWorkbook(t, headers, [][]string{dataRow})
	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	assert.Empty(t, result.Errors)

	stored, _, err := fx.records.Select(context.Background(), domain.RecordTypeAccount, testTenant, repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Helix Biosciences", stored[0]["account_name"])
	assert.Equal(t, "+91 98765 43210", stored[0]["phone"])
	assert.Equal(t, []string{"Food & Beverage"}, stored[0]["industries"])
}

func TestImport_SecondRunSkipsAllAsDuplicates(t *testing.T) {
	fx := newImportFixture(t, 50)
	file := buildWorkbook(t,
		[]string{"Account Name", "Billing City"},
		[][]string{
			{"Acme Labs", "Pune"},
			{"Beta Corp", "Mumbai"},
		})

	first, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Imported)

	second, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)
	assert.ElementsMatch(t, []string{"Acme Labs", "Beta Corp"}, second.Duplicates)
	assert.Empty(t, second.Errors)

	// 存量没有翻倍
	_, total, err := fx.records.Select(context.Background(), domain.RecordTypeAccount, testTenant, repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestImport_InFileDuplicatesCollapse(t *testing.T) {
	fx := newImportFixture(t, 50)
	file := buildWorkbook(t,
		[]string{"Account Name"},
		[][]string{
			{"Acme Labs"},
			{"Acme Labs"},
			{"Beta Corp"},
		})

	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []string{"Acme Labs"}, result.Duplicates)
}

func TestImport_BlankIdentifyingFieldSkipsRow(t *testing.T) {
	fx := newImportFixture(t, 50)
	file := buildWorkbook(t,
		[]string{"Account Name", "Billing City"},
		[][]string{
			{"Acme Labs", "Pune"},
			{"", "Mumbai"}, // 无名行：跳过而不是报错
		})

	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, result.Duplicates)
}

func TestImport_FailedBatchIsRecordedAndJobContinues(t *testing.T) {
	fx := newImportFixture(t, 20)
	fx.records.InsertErr = errors.New("connection reset")
	fx.records.FailInsertCall = 2 // 第二个批次的 Insert 调用失败

	headers := []string{"Account Name", "Billing City"}
	rows := make([][]string, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, []string{fmt.Sprintf("Account %03d", i), "Pune"})
	}
	file := buildWorkbook(t, headers, rows)

	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.NoError(t, err)

	assert.Equal(t, 120, result.Total)
	assert.Equal(t, 100, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Batch)
	assert.Contains(t, result.Errors[0].Message, "connection reset")
}

func TestImport_DuplicateBatchIsSalvagedRowByRow(t *testing.T) {
	fx := newImportFixture(t, 50)
	// 并发作业抢先写入时批量 Insert 撞唯一键，整批降级为逐行插入
	fx.records.InsertErr = &domain.DuplicateRecordError{RecordType: "accounts", Key: "acme labs|pune"}
	fx.records.FailInsertCall = 1

	file := buildWorkbook(t,
		[]string{"Account Name", "Billing City"},
		[][]string{
			{"Acme Labs", "Pune"},
			{"Borealis", "Mumbai"},
			{"Cygnus", "Delhi"},
		})

	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeAccount, file)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Imported)
	assert.Empty(t, result.Errors)
}

func TestSalvageErrorsKeepOriginatingBatchNumber(t *testing.T) {
	fx := newImportFixture(t, 50)
	fx.records.InsertErr = errors.New("disk full")
	fx.records.FailInsertCall = 1

	result := domain.NewImportResult()
	batch := []pendingRow{
		{fields: map[string]any{"account_name": "Acme Labs", "billing_city": "Pune"}},
		{fields: map[string]any{"account_name": "Borealis", "billing_city": "Mumbai"}},
	}
	fx.importer.salvageBatch(context.Background(), testTenant, domain.RecordTypeAccount, batch, result, 3)

	assert.Equal(t, 1, result.Imported)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Batch)
	assert.Contains(t, result.Errors[0].Message, "disk full")
}

func TestImport_DateAndIndustryDerivations(t *testing.T) {
	fx := newImportFixture(t, 50)
	file := buildWorkbook(t,
		[]string{"Account Name", "Contact Name", "Lead Date"},
		[][]string{
			{"Acme Labs", "Asha", "05/03/2024"},
		})

	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeLead, file)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	stored, _, err := fx.records.Select(context.Background(), domain.RecordTypeLead, testTenant, repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "2024-03-05", stored[0]["lead_date"])
}

func TestImport_LeadProductColumnsPairPositionally(t *testing.T) {
	fx := newImportFixture(t, 50)

	// 预置产品让 product_id 可解析
	_, err := fx.records.Insert(context.Background(), domain.RecordTypeProduct, testTenant, []map[string]any{
		{"product_name": "Widget"},
	})
	require.NoError(t, err)

	file := buildWorkbook(t,
		[]string{"Account Name", domain.LeadProductNamesLabel, domain.LeadProductQuantitiesLabel},
		[][]string{
			{"Acme Labs", "Widget, Gadget", "2, 5"},
			{"Beta Corp", "Widget", ""}, // 数量缺省按 1
		})

	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeLead, file)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Empty(t, result.Errors)

	assoc, _, err := fx.records.Select(context.Background(), "lead_products", testTenant, repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, assoc, 3)

	byName := map[string]map[string]any{}
	for _, a := range assoc {
		name := a["product_name"].(string)
		if name == "Widget" {
			// 两条 Widget 行，用数量区分
			name = fmt.Sprintf("Widget-%v", a["quantity"])
		}
		byName[name] = a
	}
	assert.Equal(t, 5.0, byName["Gadget"]["quantity"])
	require.Contains(t, byName, "Widget-2")
	assert.NotEmpty(t, byName["Widget-2"]["product_id"], "known product resolves to an id")
	require.Contains(t, byName, "Widget-1")
	_, hasID := byName["Gadget"]["product_id"]
	assert.False(t, hasID, "unknown product keeps name only")
}

func TestImport_LeadCustomFieldsSplitFromStandardColumns(t *testing.T) {
	fx := newImportFixture(t, 50)

	// 配置一个非标准字段
	_, err := NewFieldConfigService(fx.fieldDefs, zap.NewNop()).Upsert(context.Background(), &domain.FieldDefinition{
		TenantID:   testTenant,
		RecordType: domain.RecordTypeLead,
		FieldName:  "referral_code",
		FieldLabel: "Referral Code",
		FieldType:  domain.FieldTypeText,
		IsEnabled:  true,
	})
	require.NoError(t, err)

	file := buildWorkbook(t,
		[]string{"Account Name", "Referral Code"},
		[][]string{{"Acme Labs", "REF-42"}})

	result, err := fx.importer.Import(context.Background(), testTenant, domain.RecordTypeLead, file)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	stored, _, err := fx.records.Select(context.Background(), domain.RecordTypeLead, testTenant, repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	custom, ok := stored[0]["custom_fields"].(map[string]any)
	require.True(t, ok, "custom_fields is %T", stored[0]["custom_fields"])
	assert.Equal(t, "REF-42", custom["referral_code"])
	_, topLevel := stored[0]["referral_code"]
	assert.False(t, topLevel)
}
