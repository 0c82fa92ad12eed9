package repository

import (
	"context"

	"recordhub-data/internal/domain"
)

// StockEntryFilters 库存单列表过滤器
type StockEntryFilters struct {
	EntryType string
	Status    string
}

// StockEntriesRepo 库存单存储。header 和 lines 是两次独立的 store 调用：
// 底层没有多语句事务，一致性由 Composite Loader 的补偿删除保证。
type StockEntriesRepo interface {
	ListEntries(ctx context.Context, tenantID string, filters StockEntryFilters, page, size int) ([]*domain.StockEntry, int, error)
	GetEntry(ctx context.Context, tenantID, entryID string) (*domain.StockEntry, error)

	// InsertHeader returns the generated entry id used as the lines' FK.
	InsertHeader(ctx context.Context, entry *domain.StockEntry) (string, error)

	// InsertItems persists all lines in one bulk call.
	InsertItems(ctx context.Context, items []domain.StockEntryItem) error

	// DeleteHeader is the compensating action after a failed line insert.
	DeleteHeader(ctx context.Context, tenantID, entryID string) error

	// DeleteEntry removes a header and its lines (lifecycle delete).
	DeleteEntry(ctx context.Context, tenantID, entryID string) error
}
