package repository

import (
	"context"

	"recordhub-data/internal/domain"
)

// FieldDefsRepo 租户字段配置存储。
// 配置在每次写路径调用时现读（不做跨请求的进程内缓存），避免 stale-enablement。
type FieldDefsRepo interface {
	// List returns all definitions for (tenant, record type) ordered by
	// field_section, display_order.
	List(ctx context.Context, tenantID, recordType string) ([]*domain.FieldDefinition, error)

	// ListEnabled returns only enabled definitions, same ordering.
	ListEnabled(ctx context.Context, tenantID, recordType string) ([]*domain.FieldDefinition, error)

	Get(ctx context.Context, tenantID, recordType, fieldName string) (*domain.FieldDefinition, error)

	// Upsert creates or replaces one definition. A mandatory field is forced
	// enabled (a mandatory-but-disabled row can never exist).
	Upsert(ctx context.Context, def *domain.FieldDefinition) error

	// SetEnabled flips is_enabled. Disabling a mandatory field fails with
	// *domain.MandatoryFieldProtectedError and changes nothing.
	SetEnabled(ctx context.Context, tenantID, recordType, fieldName string, enabled bool) error

	// ApplyUpdate applies one bulk-update item (enable/order/label/
	// placeholder/help-text). Each item is independent; callers collect
	// per-field results.
	ApplyUpdate(ctx context.Context, tenantID, recordType string, upd domain.FieldUpdate) error

	// SeedDefaults inserts the default field set at tenant provisioning.
	// Existing rows are left untouched so reseeding never clobbers edits.
	SeedDefaults(ctx context.Context, tenantID string, defs []*domain.FieldDefinition) error
}
