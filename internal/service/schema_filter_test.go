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

const testTenant = "00000000-0000-0000-0000-000000000101"

func newTestSchemaFilter(t *testing.T) (*SchemaFilter, *repository.MemoryFieldDefsRepo) {
	t.Helper()
	fieldDefs := repository.NewMemoryFieldDefsRepo()
	return NewSchemaFilter(fieldDefs, zap.NewNop()), fieldDefs
}

func seedAccountFields(t *testing.T, fieldDefs *repository.MemoryFieldDefsRepo) {
	t.Helper()
	defs := DefaultFieldDefinitions(domain.RecordTypeAccount)
	for _, d := range defs {
		d.TenantID = testTenant
	}
	require.NoError(t, fieldDefs.SeedDefaults(context.Background(), testTenant, defs))
}

func TestFilterForCreate_DropsUnknownAndDisabledFields(t *testing.T) {
	filter, fieldDefs := newTestSchemaFilter(t)
	seedAccountFields(t, fieldDefs)

	// website 被租户禁用
	require.NoError(t, fieldDefs.SetEnabled(context.Background(), testTenant, domain.RecordTypeAccount, "website", false))

	out, err := filter.FilterForCreate(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"account_name": "Acme Labs",
		"website":      "https://acme.test",
		"not_a_field":  "junk",
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Labs", out["account_name"])
	_, hasWebsite := out["website"]
	assert.False(t, hasWebsite)
	_, hasUnknown := out["not_a_field"]
	assert.False(t, hasUnknown)
}

func TestFilterForCreate_EveryOutputFieldWasConfigured(t *testing.T) {
	filter, fieldDefs := newTestSchemaFilter(t)
	seedAccountFields(t, fieldDefs)

	input := map[string]any{
		"account_name": "Acme Labs",
		"billing_city": "Pune",
		"industries":   "Technology",
		"bogus_one":    "x",
		"bogus_two":    "y",
	}
	out, err := filter.FilterForCreate(context.Background(), testTenant, domain.RecordTypeAccount, input)
	require.NoError(t, err)

	enabled, err := fieldDefs.ListEnabled(context.Background(), testTenant, domain.RecordTypeAccount)
	require.NoError(t, err)
	allowed := map[string]bool{}
	for _, d := range enabled {
		allowed[d.FieldName] = true
	}
	for name := range out {
		assert.True(t, allowed[name], "field %q escaped the allowlist", name)
	}
}

func TestFilterForCreate_PermissiveWhenTenantHasNoConfig(t *testing.T) {
	filter, _ := newTestSchemaFilter(t)

	out, err := filter.FilterForCreate(context.Background(), "tenant-without-config", domain.RecordTypeAccount, map[string]any{
		"account_name":  "Legacy Co",
		"legacy_column": "kept",
	})
	require.NoError(t, err)
	assert.Equal(t, "Legacy Co", out["account_name"])
	assert.Equal(t, "kept", out["legacy_column"])
}

func TestFilterForCreate_NormalizesEmptyStringsToNull(t *testing.T) {
	filter, fieldDefs := newTestSchemaFilter(t)
	seedAccountFields(t, fieldDefs)

	out, err := filter.FilterForCreate(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"account_name": "Acme Labs",
		"billing_city": "   ",
		"phone":        "",
	})
	require.NoError(t, err)

	city, ok := out["billing_city"]
	require.True(t, ok)
	assert.Nil(t, city)
	phone, ok := out["phone"]
	require.True(t, ok)
	assert.Nil(t, phone)
}

func TestFilterForCreate_CoercesIndustriesToList(t *testing.T) {
	filter, fieldDefs := newTestSchemaFilter(t)
	seedAccountFields(t, fieldDefs)

	cases := map[string]any{
		"single string":   "Technology",
		"comma separated": "Technology, Healthcare",
		"already a list":  []any{"Technology", "Healthcare"},
	}
	for name, input := range cases {
		out, err := filter.FilterForCreate(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
			"account_name": "Acme Labs",
			"industries":   input,
		})
		require.NoError(t, err, name)
		list, ok := out["industries"].([]string)
		require.True(t, ok, "%s: industries is %T", name, out["industries"])
		assert.NotEmpty(t, list, name)
		assert.Equal(t, "Technology", list[0], name)
	}
}

func TestFilterForUpdate_EnforcesAllowlistWhenConfigured(t *testing.T) {
	filter, fieldDefs := newTestSchemaFilter(t)
	seedAccountFields(t, fieldDefs)

	// 禁用字段在更新路径同样拦下
	require.NoError(t, fieldDefs.SetEnabled(context.Background(), testTenant, domain.RecordTypeAccount, "website", false))

	out, err := filter.FilterForUpdate(context.Background(), testTenant, domain.RecordTypeAccount, map[string]any{
		"website":      "https://acme.test",
		"not_a_field":  "junk",
		"billing_city": "",
	})
	require.NoError(t, err)
	_, hasWebsite := out["website"]
	assert.False(t, hasWebsite)
	_, hasUnknown := out["not_a_field"]
	assert.False(t, hasUnknown)
	city, ok := out["billing_city"]
	require.True(t, ok)
	assert.Nil(t, city)
}

func TestFilterForUpdate_PermissiveWhenTenantHasNoConfig(t *testing.T) {
	filter, _ := newTestSchemaFilter(t)

	out, err := filter.FilterForUpdate(context.Background(), "tenant-without-config", domain.RecordTypeAccount, map[string]any{
		"account_name":  "Legacy Co",
		"legacy_column": "kept",
	})
	require.NoError(t, err)
	assert.Equal(t, "Legacy Co", out["account_name"])
	assert.Equal(t, "kept", out["legacy_column"])
}
