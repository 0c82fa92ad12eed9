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

func newTestFieldConfigService(t *testing.T) (*FieldConfigService, *repository.MemoryFieldDefsRepo) {
	t.Helper()
	fieldDefs := repository.NewMemoryFieldDefsRepo()
	return NewFieldConfigService(fieldDefs, zap.NewNop()), fieldDefs
}

func TestSeedDefaults_CoversAllRecordTypes(t *testing.T) {
	svc, _ := newTestFieldConfigService(t)
	require.NoError(t, svc.SeedDefaults(context.Background(), testTenant))

	for _, recordType := range domain.RecordTypes() {
		defs, err := svc.List(context.Background(), testTenant, recordType)
		require.NoError(t, err)
		assert.NotEmpty(t, defs, recordType)
	}
}

func TestSeedDefaults_DoesNotClobberEdits(t *testing.T) {
	svc, _ := newTestFieldConfigService(t)
	require.NoError(t, svc.SeedDefaults(context.Background(), testTenant))

	// 租户改了 label
	label := "Organisation Name"
	results, err := svc.BulkUpdate(context.Background(), testTenant, domain.RecordTypeAccount, []domain.FieldUpdate{
		{FieldName: "account_name", FieldLabel: &label},
	})
	require.NoError(t, err)
	require.True(t, results[0].OK)

	// 再次 seed 不应覆盖
	require.NoError(t, svc.SeedDefaults(context.Background(), testTenant))
	defs, err := svc.List(context.Background(), testTenant, domain.RecordTypeAccount)
	require.NoError(t, err)
	for _, d := range defs {
		if d.FieldName == "account_name" {
			assert.Equal(t, "Organisation Name", d.FieldLabel)
		}
	}
}

func TestSetEnabled_RejectsMandatoryField(t *testing.T) {
	svc, fieldDefs := newTestFieldConfigService(t)
	require.NoError(t, svc.SeedDefaults(context.Background(), testTenant))

	err := svc.SetEnabled(context.Background(), testTenant, domain.RecordTypeAccount, "account_name", false)
	var protected *domain.MandatoryFieldProtectedError
	require.ErrorAs(t, err, &protected)
	assert.Equal(t, "account_name", protected.FieldName)

	// 状态未变
	def, err := fieldDefs.Get(context.Background(), testTenant, domain.RecordTypeAccount, "account_name")
	require.NoError(t, err)
	assert.True(t, def.IsEnabled)
}

func TestUpsert_MandatoryForcesEnabled(t *testing.T) {
	svc, _ := newTestFieldConfigService(t)

	saved, err := svc.Upsert(context.Background(), &domain.FieldDefinition{
		TenantID:    testTenant,
		RecordType:  domain.RecordTypeProduct,
		FieldName:   "sku",
		FieldLabel:  "SKU",
		FieldType:   domain.FieldTypeText,
		IsEnabled:   false,
		IsMandatory: true,
	})
	require.NoError(t, err)
	assert.True(t, saved.IsEnabled, "mandatory field must come back enabled")
}

func TestUpsert_RejectsSelectWithoutOptions(t *testing.T) {
	svc, _ := newTestFieldConfigService(t)

	_, err := svc.Upsert(context.Background(), &domain.FieldDefinition{
		TenantID:   testTenant,
		RecordType: domain.RecordTypeAccount,
		FieldName:  "region",
		FieldLabel: "Region",
		FieldType:  domain.FieldTypeSelect,
	})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestBulkUpdate_OneFailureDoesNotRollBackOthers(t *testing.T) {
	svc, fieldDefs := newTestFieldConfigService(t)
	require.NoError(t, svc.SeedDefaults(context.Background(), testTenant))

	off := false
	order := 40
	results, err := svc.BulkUpdate(context.Background(), testTenant, domain.RecordTypeAccount, []domain.FieldUpdate{
		{FieldName: "website", DisplayOrder: &order},
		{FieldName: "account_name", IsEnabled: &off}, // mandatory, 必须失败
		{FieldName: "phone", IsEnabled: &off},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].OK)

	// 第三项生效了
	phone, err := fieldDefs.Get(context.Background(), testTenant, domain.RecordTypeAccount, "phone")
	require.NoError(t, err)
	assert.False(t, phone.IsEnabled)
}
