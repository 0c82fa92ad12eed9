package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"recordhub-data/internal/domain"
)

// PostgresStockEntriesRepo 库存单的 Postgres 实现
type PostgresStockEntriesRepo struct {
	db *sql.DB
}

func NewPostgresStockEntriesRepo(db *sql.DB) *PostgresStockEntriesRepo {
	return &PostgresStockEntriesRepo{db: db}
}

func (r *PostgresStockEntriesRepo) ListEntries(ctx context.Context, tenantID string, filters StockEntryFilters, page, size int) ([]*domain.StockEntry, int, error) {
	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2

	if filters.EntryType != "" {
		where = append(where, fmt.Sprintf("entry_type = $%d", argN))
		args = append(args, filters.EntryType)
		argN++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM stock_entries "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, &domain.StoreUnavailableError{Op: "count stock_entries", Cause: err}
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	args = append(args, size, (page-1)*size)

	query := fmt.Sprintf(`
		SELECT entry_id::text, tenant_id::text, entry_number, entry_type, status,
		       entry_date, reference, notes, created_by, created_at
		FROM stock_entries
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, whereClause, argN, argN+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, &domain.StoreUnavailableError{Op: "list stock_entries", Cause: err}
	}
	defer rows.Close()

	out := []*domain.StockEntry{}
	for rows.Next() {
		var e domain.StockEntry
		if err := rows.Scan(
			&e.EntryID, &e.TenantID, &e.EntryNumber, &e.EntryType, &e.Status,
			&e.EntryDate, &e.Reference, &e.Notes, &e.CreatedBy, &e.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, e := range out {
		items, err := r.listItems(ctx, e.TenantID, e.EntryID)
		if err != nil {
			return nil, 0, err
		}
		e.Items = items
	}
	return out, total, nil
}

func (r *PostgresStockEntriesRepo) GetEntry(ctx context.Context, tenantID, entryID string) (*domain.StockEntry, error) {
	var e domain.StockEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT entry_id::text, tenant_id::text, entry_number, entry_type, status,
		       entry_date, reference, notes, created_by, created_at
		FROM stock_entries
		WHERE tenant_id = $1 AND entry_id = $2`,
		tenantID, entryID).Scan(
		&e.EntryID, &e.TenantID, &e.EntryNumber, &e.EntryType, &e.Status,
		&e.EntryDate, &e.Reference, &e.Notes, &e.CreatedBy, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "get stock_entry", Cause: err}
	}

	items, err := r.listItems(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}
	e.Items = items
	return &e, nil
}

func (r *PostgresStockEntriesRepo) listItems(ctx context.Context, tenantID, entryID string) ([]domain.StockEntryItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id::text, entry_id::text, tenant_id::text, product_id::text,
		       product_name, quantity, unit_cost, notes
		FROM stock_entry_items
		WHERE tenant_id = $1 AND entry_id = $2
		ORDER BY item_id`,
		tenantID, entryID)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "list stock_entry_items", Cause: err}
	}
	defer rows.Close()

	items := []domain.StockEntryItem{}
	for rows.Next() {
		var it domain.StockEntryItem
		if err := rows.Scan(
			&it.ItemID, &it.EntryID, &it.TenantID, &it.ProductID,
			&it.ProductName, &it.Quantity, &it.UnitCost, &it.Notes,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresStockEntriesRepo) InsertHeader(ctx context.Context, entry *domain.StockEntry) (string, error) {
	var entryID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stock_entries (
			tenant_id, entry_number, entry_type, status,
			entry_date, reference, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING entry_id::text`,
		entry.TenantID, entry.EntryNumber, entry.EntryType, entry.Status,
		entry.EntryDate, nullStringToAny(entry.Reference),
		nullStringToAny(entry.Notes), nullStringToAny(entry.CreatedBy),
	).Scan(&entryID)
	if err != nil {
		return "", &domain.StoreUnavailableError{Op: "insert stock_entry header", Cause: err}
	}
	return entryID, nil
}

func (r *PostgresStockEntriesRepo) InsertItems(ctx context.Context, items []domain.StockEntryItem) error {
	if len(items) == 0 {
		return nil
	}

	valueRows := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*7)
	argN := 1
	for _, it := range items {
		ph := make([]string, 0, 7)
		for i := 0; i < 7; i++ {
			ph = append(ph, fmt.Sprintf("$%d", argN))
			argN++
		}
		valueRows = append(valueRows, "("+strings.Join(ph, ", ")+")")
		args = append(args,
			it.EntryID, it.TenantID, nullStringToAny(it.ProductID),
			it.ProductName, it.Quantity, it.UnitCost, nullStringToAny(it.Notes))
	}

	query := `
		INSERT INTO stock_entry_items (
			entry_id, tenant_id, product_id, product_name, quantity, unit_cost, notes
		) VALUES ` + strings.Join(valueRows, ", ")

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.StoreUnavailableError{Op: "insert stock_entry_items", Cause: err}
	}
	return nil
}

func (r *PostgresStockEntriesRepo) DeleteHeader(ctx context.Context, tenantID, entryID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM stock_entries WHERE tenant_id = $1 AND entry_id = $2", tenantID, entryID)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "delete stock_entry header", Cause: err}
	}
	return nil
}

func (r *PostgresStockEntriesRepo) DeleteEntry(ctx context.Context, tenantID, entryID string) error {
	// Lines first: the store offers no cascading transaction to this layer.
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM stock_entry_items WHERE tenant_id = $1 AND entry_id = $2", tenantID, entryID)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "delete stock_entry_items", Cause: err}
	}
	return r.DeleteHeader(ctx, tenantID, entryID)
}
