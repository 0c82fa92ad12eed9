package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"recordhub-data/internal/domain"
)

// MemoryStockEntriesRepo 库存单的内存实现（dev fallback + 单测）。
// ItemsErr / DeleteHeaderErr 供测试注入行插入失败与补偿失败。
type MemoryStockEntriesRepo struct {
	mu sync.RWMutex

	// tenantID -> entryID -> entry
	entries map[string]map[string]*domain.StockEntry

	ItemsErr        error
	DeleteHeaderErr error
}

func NewMemoryStockEntriesRepo() *MemoryStockEntriesRepo {
	return &MemoryStockEntriesRepo{
		entries: map[string]map[string]*domain.StockEntry{},
	}
}

func (r *MemoryStockEntriesRepo) bucket(tenantID string) map[string]*domain.StockEntry {
	if r.entries[tenantID] == nil {
		r.entries[tenantID] = map[string]*domain.StockEntry{}
	}
	return r.entries[tenantID]
}

// peek 只读访问，RLock 下使用
func (r *MemoryStockEntriesRepo) peek(tenantID string) map[string]*domain.StockEntry {
	return r.entries[tenantID]
}

func (r *MemoryStockEntriesRepo) ListEntries(_ context.Context, tenantID string, filters StockEntryFilters, page, size int) ([]*domain.StockEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.StockEntry{}
	for _, e := range r.peek(tenantID) {
		if filters.EntryType != "" && e.EntryType != filters.EntryType {
			continue
		}
		if filters.Status != "" && e.Status != filters.Status {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].EntryID < out[j].EntryID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := len(out)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *MemoryStockEntriesRepo) GetEntry(_ context.Context, tenantID, entryID string) (*domain.StockEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.peek(tenantID)[entryID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (r *MemoryStockEntriesRepo) InsertHeader(_ context.Context, entry *domain.StockEntry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *entry
	cp.EntryID = uuid.New().String()
	cp.CreatedAt = time.Now()
	cp.Items = nil
	r.bucket(entry.TenantID)[cp.EntryID] = &cp
	return cp.EntryID, nil
}

func (r *MemoryStockEntriesRepo) InsertItems(_ context.Context, items []domain.StockEntryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ItemsErr != nil {
		return r.ItemsErr
	}
	for _, it := range items {
		e, ok := r.bucket(it.TenantID)[it.EntryID]
		if !ok {
			return sql.ErrNoRows
		}
		it.ItemID = uuid.New().String()
		e.Items = append(e.Items, it)
	}
	return nil
}

func (r *MemoryStockEntriesRepo) DeleteHeader(_ context.Context, tenantID, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.DeleteHeaderErr != nil {
		return r.DeleteHeaderErr
	}
	delete(r.bucket(tenantID), entryID)
	return nil
}

func (r *MemoryStockEntriesRepo) DeleteEntry(ctx context.Context, tenantID, entryID string) error {
	return r.DeleteHeader(ctx, tenantID, entryID)
}
