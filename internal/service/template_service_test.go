package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

func newTestTemplateService(t *testing.T) (*TemplateService, *repository.MemoryRecordsRepo, *repository.MemoryFieldDefsRepo) {
	t.Helper()
	records := repository.NewMemoryRecordsRepo()
	fieldDefs := repository.NewMemoryFieldDefsRepo()
	return NewTemplateService(records, fieldDefs, zap.NewNop()), records, fieldDefs
}

func readSheet(t *testing.T, workbook []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(workbook))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func TestGenerateTemplate_LeadSyntheticColumnsComeLast(t *testing.T) {
	svc, _, _ := newTestTemplateService(t)

	// 无字段配置的租户回退到默认字段集
	tpl, err := svc.GenerateTemplate(context.Background(), testTenant, domain.RecordTypeLead)
	require.NoError(t, err)

	rows := readSheet(t, tpl)
	require.GreaterOrEqual(t, len(rows), 2, "expected header row plus sample row")
	headers := rows[0]

	expected := len(DefaultFieldDefinitions(domain.RecordTypeLead)) + 2
	assert.Len(t, headers, expected)
	assert.Equal(t, domain.LeadProductNamesLabel, headers[len(headers)-2])
	assert.Equal(t, domain.LeadProductQuantitiesLabel, headers[len(headers)-1])

	// 系统生成字段和关联 id 字段不出现在模板里
	for _, h := range headers {
		assert.NotContains(t, []string{"lead_id", "account_id", "contact_id"}, h)
	}

	assert.Equal(t, "Product A, Product B", rows[1][len(headers)-2])
	assert.Equal(t, "2, 5", rows[1][len(headers)-1])
}

func TestGenerateTemplate_SampleRowMatchesFieldTypes(t *testing.T) {
	svc, _, fieldDefs := newTestTemplateService(t)

	defs := []*domain.FieldDefinition{
		{TenantID: testTenant, RecordType: domain.RecordTypeContact, FieldName: "first_name", FieldLabel: "First Name", FieldType: domain.FieldTypeText, IsEnabled: true, IsMandatory: true, DisplayOrder: 1},
		{TenantID: testTenant, RecordType: domain.RecordTypeContact, FieldName: "email", FieldLabel: "Email", FieldType: domain.FieldTypeEmail, IsEnabled: true, DisplayOrder: 2},
		{TenantID: testTenant, RecordType: domain.RecordTypeContact, FieldName: "phone", FieldLabel: "Phone", FieldType: domain.FieldTypePhone, IsEnabled: true, DisplayOrder: 3},
		{TenantID: testTenant, RecordType: domain.RecordTypeContact, FieldName: "seats", FieldLabel: "Seats", FieldType: domain.FieldTypeNumber, IsEnabled: true, DisplayOrder: 4},
		{TenantID: testTenant, RecordType: domain.RecordTypeContact, FieldName: "joined_on", FieldLabel: "Joined On", FieldType: domain.FieldTypeDate, IsEnabled: true, DisplayOrder: 5},
		{TenantID: testTenant, RecordType: domain.RecordTypeContact, FieldName: "tier", FieldLabel: "Tier", FieldType: domain.FieldTypeSelect, FieldOptions: []string{"Gold", "Silver"}, IsEnabled: true, DisplayOrder: 6},
	}
	require.NoError(t, fieldDefs.SeedDefaults(context.Background(), testTenant, defs))

	tpl, err := svc.GenerateTemplate(context.Background(), testTenant, domain.RecordTypeContact)
	require.NoError(t, err)

	rows := readSheet(t, tpl)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"First Name", "Email", "Phone", "Seats", "Joined On", "Tier"}, rows[0])
	assert.Equal(t, "Sample First Name", rows[1][0])
	assert.Equal(t, "example@company.com", rows[1][1])
	assert.Equal(t, "+91 98765 43210", rows[1][2])
	assert.Equal(t, "0", rows[1][3])
	assert.Equal(t, todayISO(), rows[1][4])
	assert.Equal(t, "Gold", rows[1][5])
}

func TestExport_FoldsListsAndRespectsColumns(t *testing.T) {
	svc, records, _ := newTestTemplateService(t)

	_, err := records.Insert(context.Background(), domain.RecordTypeAccount, testTenant, []map[string]any{
		{
			"account_name": "Helix Biosciences",
			"billing_city": "Pune",
			"industries":   []string{"Healthcare", "Technology"},
		},
	})
	require.NoError(t, err)

	out, err := svc.Export(context.Background(), testTenant, domain.RecordTypeAccount)
	require.NoError(t, err)

	rows := readSheet(t, out)
	require.Len(t, rows, 2)
	headers := rows[0]

	byLabel := map[string]string{}
	for i, h := range headers {
		if i < len(rows[1]) {
			byLabel[h] = rows[1][i]
		} else {
			byLabel[h] = ""
		}
	}
	assert.Equal(t, "Helix Biosciences", byLabel["Account Name"])
	assert.Equal(t, "Pune", byLabel["Billing City"])
	assert.Equal(t, "Healthcare, Technology", byLabel["Industries"])
}
