package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

func newTestRecordService(t *testing.T) (*RecordService, *repository.MemoryRecordsRepo) {
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
	filter := NewSchemaFilter(fieldDefs, zap.NewNop())
	return NewRecordService(records, filter, zap.NewNop()), records
}

func TestRecordCreate_DuplicateNaturalKeyIsHardStop(t *testing.T) {
	svc, _ := newTestRecordService(t)

	_, err := svc.Create(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"account_name": "Acme Labs",
		"billing_city": "Pune",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"account_name": "Acme Labs",
		"billing_city": "Pune",
	})
	var dup *domain.DuplicateRecordError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, domain.RecordTypeAccount, dup.RecordType)

	// 同名不同城市不是重复
	_, err = svc.Create(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"account_name": "Acme Labs",
		"billing_city": "Mumbai",
	})
	require.NoError(t, err)
}

func TestRecordCreate_GuardSkippedWhenKeyFieldMissing(t *testing.T) {
	svc, _ := newTestRecordService(t)

	// billing_city 缺失：查重键不完整，不拦截
	_, err := svc.Create(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"account_name": "Acme Labs",
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"account_name": "Acme Labs",
	})
	require.NoError(t, err)
}

func TestRecordCreate_TenantIsolation(t *testing.T) {
	svc, _ := newTestRecordService(t)
	otherTenant := "00000000-0000-0000-0000-000000000202"

	_, err := svc.Create(context.Background(), testTenant, domain.RecordTypeContact, map[string]any{
		"first_name": "Asha",
		"email":      "asha@example.com",
	})
	require.NoError(t, err)

	// 另一个租户没有字段配置，走宽松透传；同 email 也不算重复
	created, err := svc.Create(context.Background(), otherTenant, domain.RecordTypeContact, map[string]any{
		"first_name": "Asha",
		"email":      "asha@example.com",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created["id"])

	items, total, err := svc.List(context.Background(), testTenant, domain.RecordTypeContact, repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Asha", items[0]["first_name"])
}

func TestRecordUpdate_AppliesPatch(t *testing.T) {
	svc, _ := newTestRecordService(t)

	created, err := svc.Create(context.Background(), testTenant, domain.RecordTypeProduct, map[string]any{
		"product_name": "Widget",
		"category":     "Hardware",
	})
	require.NoError(t, err)
	id := created["id"].(string)

	updated, err := svc.Update(context.Background(), testTenant, domain.RecordTypeProduct, id, map[string]any{
		"category": "Components",
	})
	require.NoError(t, err)
	assert.Equal(t, "Components", updated["category"])
	assert.Equal(t, "Widget", updated["product_name"])
}

func TestRecordCreate_LeadCustomFieldsSplit(t *testing.T) {
	records := repository.NewMemoryRecordsRepo()
	fieldDefs := repository.NewMemoryFieldDefsRepo()
	defs := DefaultFieldDefinitions(domain.RecordTypeLead)
	for _, d := range defs {
		d.TenantID = testTenant
	}
	// 租户自定义字段：不是 leads 物理列
	defs = append(defs, &domain.FieldDefinition{
		TenantID:   testTenant,
		RecordType: domain.RecordTypeLead,
		FieldName:  "referral_code",
		FieldLabel: "Referral Code",
		FieldType:  domain.FieldTypeText,
		IsEnabled:  true,
	})
	require.NoError(t, fieldDefs.SeedDefaults(context.Background(), testTenant, defs))
	svc := NewRecordService(records, NewSchemaFilter(fieldDefs, zap.NewNop()), zap.NewNop())

	created, err := svc.Create(context.Background(), testTenant, domain.RecordTypeLead, map[string]any{
		"account_name":  "Acme Labs",
		"referral_code": "REF-42",
	})
	require.NoError(t, err)

	assert.NotContains(t, created, "referral_code")
	custom, ok := created["custom_fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "REF-42", custom["referral_code"])
}

func TestRecordDelete_CleansUpLeadProducts(t *testing.T) {
	svc, records := newTestRecordService(t)

	created, err := svc.Create(context.Background(), testTenant, domain.RecordTypeLead, map[string]any{
		"account_name": "Acme Labs",
	})
	require.NoError(t, err)
	leadID := created["id"].(string)

	_, err = records.Insert(context.Background(), "lead_products", testTenant, []map[string]any{
		{"lead_id": leadID, "product_name": "Widget", "quantity": 2.0},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), testTenant, domain.RecordTypeLead, leadID))

	assoc, _, err := records.Select(context.Background(), "lead_products", testTenant, repository.RecordFilters{}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, assoc)
}
