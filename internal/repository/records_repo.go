package repository

import (
	"context"
)

// RecordFilters 记录列表查询过滤器
type RecordFilters struct {
	Search string            // ILIKE search over the type's searchable fields
	Equals map[string]string // exact-match filters (industry, city, ...)
}

// RecordsRepo is the uniform record-store boundary: every call is scoped by
// an explicit tenant id, rows travel as field_name -> value maps, and no
// multi-statement transaction is assumed. All record types share it.
type RecordsRepo interface {
	Select(ctx context.Context, recordType, tenantID string, filters RecordFilters, page, size int) ([]map[string]any, int, error)
	Get(ctx context.Context, recordType, tenantID, id string) (map[string]any, error)

	// Insert persists rows in one bulk call and returns generated ids in
	// input order. A unique-constraint conflict surfaces as
	// *domain.DuplicateRecordError so callers can degrade to skip.
	Insert(ctx context.Context, recordType, tenantID string, rows []map[string]any) ([]string, error)

	Update(ctx context.Context, recordType, tenantID, id string, patch map[string]any) (map[string]any, error)
	Delete(ctx context.Context, recordType, tenantID, id string) error

	// DeleteWhere removes rows matching equality filters (lead_products cleanup).
	DeleteWhere(ctx context.Context, recordType, tenantID string, equals map[string]any) error

	// Exists 自然键查重。key 的所有值都已非空（调用方保证）。
	Exists(ctx context.Context, recordType, tenantID string, key map[string]any) (bool, error)

	// Count returns the number of rows of a type for a tenant (stats page).
	Count(ctx context.Context, recordType, tenantID string) (int, error)
}

// recordTables maps logical record types onto physical tables. lead_products
// is internal (loader/association writes), not an HTTP-facing record type.
var recordTables = map[string]string{
	"accounts":      "accounts",
	"contacts":      "contacts",
	"leads":         "leads",
	"products":      "products",
	"lead_products": "lead_products",
}

// searchFields per record type for the Search filter.
var searchFields = map[string][]string{
	"accounts": {"account_name", "billing_city", "website"},
	"contacts": {"first_name", "last_name", "email"},
	"leads":    {"account_name", "contact_name", "product_name"},
	"products": {"product_name", "category"},
}
