package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
)

// StockEntryService 库存单（复合记录）服务。
// header 和 lines 是两次独立的 store 调用，lines 失败后补偿删除 header；
// 补偿本身失败时上抛 OrphanedHeaderError，绝不吞掉。
type StockEntryService struct {
	entries repository.StockEntriesRepo
	logger  *zap.Logger
}

// NewStockEntryService 创建库存单服务
func NewStockEntryService(entries repository.StockEntriesRepo, logger *zap.Logger) *StockEntryService {
	return &StockEntryService{entries: entries, logger: logger}
}

var validEntryTypes = map[string]bool{
	"inward":     true,
	"outward":    true,
	"adjustment": true,
}

// CreateEntryRequest 创建库存单请求
type CreateEntryRequest struct {
	TenantID  string
	EntryType string
	Status    string
	EntryDate string // ISO 或 DD/MM/YYYY
	Reference string
	Notes     string
	CreatedBy string
	Items     []CreateEntryItem
}

// CreateEntryItem 库存单行
type CreateEntryItem struct {
	ProductID   string
	ProductName string
	Quantity    float64
	UnitCost    float64
	Notes       string
}

// List 分页查询库存单
func (s *StockEntryService) List(ctx context.Context, tenantID string, filters repository.StockEntryFilters, page, size int) ([]*domain.StockEntry, int, error) {
	if tenantID == "" {
		return nil, 0, domain.NewValidationError("tenant_id is required")
	}
	return s.entries.ListEntries(ctx, tenantID, filters, page, size)
}

// Get 查询单个库存单（含行）
func (s *StockEntryService) Get(ctx context.Context, tenantID, entryID string) (*domain.StockEntry, error) {
	if tenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	return s.entries.GetEntry(ctx, tenantID, entryID)
}

// Create 复合写入：先 header 后 lines。
// lines 失败时删除 header 回到干净状态；删除也失败时返回 OrphanedHeaderError。
func (s *StockEntryService) Create(ctx context.Context, req CreateEntryRequest) (*domain.StockEntry, error) {
	if req.TenantID == "" {
		return nil, domain.NewValidationError("tenant_id is required")
	}
	if !validEntryTypes[req.EntryType] {
		return nil, domain.NewValidationError("unknown entry type %q", req.EntryType)
	}
	if len(req.Items) == 0 {
		return nil, domain.NewValidationError("stock entry needs at least one item")
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return nil, domain.NewValidationError("item %d: product_name is required", i+1)
		}
		if item.Quantity <= 0 {
			return nil, domain.NewValidationError("item %d: quantity must be positive", i+1)
		}
	}

	status := req.Status
	if status == "" {
		status = domain.StockEntryStatusDraft
	}

	entry := &domain.StockEntry{
		TenantID:    req.TenantID,
		EntryNumber: generateEntryNumber(req.EntryType),
		EntryType:   req.EntryType,
		Status:      status,
	}
	if req.EntryDate != "" {
		if t, err := time.Parse("2006-01-02", normalizeDate(req.EntryDate)); err == nil {
			entry.EntryDate = sql.NullTime{Time: t, Valid: true}
		}
	}
	if req.Reference != "" {
		entry.Reference = sql.NullString{String: req.Reference, Valid: true}
	}
	if req.Notes != "" {
		entry.Notes = sql.NullString{String: req.Notes, Valid: true}
	}
	if req.CreatedBy != "" {
		entry.CreatedBy = sql.NullString{String: req.CreatedBy, Valid: true}
	}

	entryID, err := s.entries.InsertHeader(ctx, entry)
	if err != nil {
		return nil, err
	}

	items := make([]domain.StockEntryItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.StockEntryItem{
			EntryID:     entryID,
			TenantID:    req.TenantID,
			ProductName: strings.TrimSpace(item.ProductName),
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
		}
		if item.ProductID != "" {
			items[i].ProductID = sql.NullString{String: item.ProductID, Valid: true}
		}
		if item.Notes != "" {
			items[i].Notes = sql.NullString{String: item.Notes, Valid: true}
		}
	}

	if err := s.entries.InsertItems(ctx, items); err != nil {
		s.logger.Error("stock entry line insert failed, rolling back header",
			zap.String("entry_id", entryID), zap.Error(err))
		if delErr := s.entries.DeleteHeader(ctx, req.TenantID, entryID); delErr != nil {
			s.logger.Error("stock entry header rollback failed",
				zap.String("entry_id", entryID), zap.Error(delErr))
			return nil, &domain.OrphanedHeaderError{HeaderID: entryID, Cause: delErr}
		}
		return nil, fmt.Errorf("stock entry items insert failed: %w", err)
	}

	return s.entries.GetEntry(ctx, req.TenantID, entryID)
}

// Delete 删除库存单。已审批/已完成的单拒绝删除。
func (s *StockEntryService) Delete(ctx context.Context, tenantID, entryID string) error {
	if tenantID == "" {
		return domain.NewValidationError("tenant_id is required")
	}
	entry, err := s.entries.GetEntry(ctx, tenantID, entryID)
	if err != nil {
		return err
	}
	if entry.Status == domain.StockEntryStatusApproved || entry.Status == domain.StockEntryStatusCompleted {
		return domain.NewValidationError("cannot delete %s stock entry %s", entry.Status, entry.EntryNumber)
	}
	return s.entries.DeleteEntry(ctx, tenantID, entryID)
}

// generateEntryNumber 形如 INW-20240305-a1b2c3 的单号
func generateEntryNumber(entryType string) string {
	prefix := strings.ToUpper(entryType)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("%s-%s-%s", prefix, time.Now().Format("20060102"), suffix)
}
