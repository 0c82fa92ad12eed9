package domain

import (
	"database/sql"
	"time"
)

// Stock entry statuses. Approved/completed entries are immutable.
const (
	StockEntryStatusDraft     = "draft"
	StockEntryStatusPending   = "pending"
	StockEntryStatusApproved  = "approved"
	StockEntryStatusCompleted = "completed"
)

// StockEntry 库存单头（对应 stock_entries 表）
// header + lines 必须一起出现：成功导入后绝不允许出现零行的 header。
type StockEntry struct {
	EntryID     string         `db:"entry_id"`
	TenantID    string         `db:"tenant_id"`
	EntryNumber string         `db:"entry_number"`
	EntryType   string         `db:"entry_type"` // inward | outward | adjustment
	Status      string         `db:"status"`
	EntryDate   sql.NullTime   `db:"entry_date"`
	Reference   sql.NullString `db:"reference"`
	Notes       sql.NullString `db:"notes"`
	CreatedBy   sql.NullString `db:"created_by"`
	CreatedAt   time.Time      `db:"created_at"`

	Items []StockEntryItem `db:"-"`
}

// StockEntryItem 库存单行（对应 stock_entry_items 表）
type StockEntryItem struct {
	ItemID      string         `db:"item_id"`
	EntryID     string         `db:"entry_id"`
	TenantID    string         `db:"tenant_id"`
	ProductID   sql.NullString `db:"product_id"`
	ProductName string         `db:"product_name"`
	Quantity    float64        `db:"quantity"`
	UnitCost    float64        `db:"unit_cost"`
	Notes       sql.NullString `db:"notes"`
}

// ToJSON 转换为 HTTP 响应格式
func (e *StockEntry) ToJSON() map[string]any {
	m := map[string]any{
		"entry_id":     e.EntryID,
		"tenant_id":    e.TenantID,
		"entry_number": e.EntryNumber,
		"entry_type":   e.EntryType,
		"status":       e.Status,
		"created_at":   e.CreatedAt.Format(time.RFC3339),
	}
	if e.EntryDate.Valid {
		m["entry_date"] = e.EntryDate.Time.Format("2006-01-02")
	}
	if e.Reference.Valid {
		m["reference"] = e.Reference.String
	}
	if e.Notes.Valid {
		m["notes"] = e.Notes.String
	}
	if e.CreatedBy.Valid {
		m["created_by"] = e.CreatedBy.String
	}
	items := make([]map[string]any, 0, len(e.Items))
	for i := range e.Items {
		items = append(items, e.Items[i].ToJSON())
	}
	m["items"] = items
	return m
}

func (i *StockEntryItem) ToJSON() map[string]any {
	m := map[string]any{
		"item_id":      i.ItemID,
		"entry_id":     i.EntryID,
		"product_name": i.ProductName,
		"quantity":     i.Quantity,
		"unit_cost":    i.UnitCost,
	}
	if i.ProductID.Valid {
		m["product_id"] = i.ProductID.String
	}
	if i.Notes.Valid {
		m["notes"] = i.Notes.String
	}
	return m
}
