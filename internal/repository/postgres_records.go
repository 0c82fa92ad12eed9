package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"recordhub-data/internal/domain"
)

// PostgresRecordsRepo 统一记录存储的 Postgres 实现。
// 物理布局对所有租户固定：每种 record type 一张表 + tenant_id 列；
// 逻辑 schema 的差异全部由上层 Schema Filter 实施。
type PostgresRecordsRepo struct {
	db *sql.DB
}

func NewPostgresRecordsRepo(db *sql.DB) *PostgresRecordsRepo {
	return &PostgresRecordsRepo{db: db}
}

func tableFor(recordType string) (string, error) {
	t, ok := recordTables[recordType]
	if !ok {
		return "", fmt.Errorf("unknown record type: %q", recordType)
	}
	return t, nil
}

func (r *PostgresRecordsRepo) Select(ctx context.Context, recordType, tenantID string, filters RecordFilters, page, size int) ([]map[string]any, int, error) {
	table, err := tableFor(recordType)
	if err != nil {
		return nil, 0, err
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2

	if filters.Search != "" {
		cols := searchFields[recordType]
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, fmt.Sprintf("%s ILIKE $%d", c, argN))
		}
		if len(parts) > 0 {
			where = append(where, "("+strings.Join(parts, " OR ")+")")
			args = append(args, "%"+filters.Search+"%")
			argN++
		}
	}

	// Equality filters in stable order so queries are reproducible.
	eqKeys := make([]string, 0, len(filters.Equals))
	for k := range filters.Equals {
		eqKeys = append(eqKeys, k)
	}
	sort.Strings(eqKeys)
	for _, k := range eqKeys {
		if err := checkIdent(k); err != nil {
			return nil, 0, err
		}
		where = append(where, fmt.Sprintf("%s = $%d", k, argN))
		args = append(args, filters.Equals[k])
		argN++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, &domain.StoreUnavailableError{Op: "select " + recordType, Cause: err}
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT * FROM %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		table, whereClause, argN, argN+1)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, &domain.StoreUnavailableError{Op: "select " + recordType, Cause: err}
	}
	defer rows.Close()

	out, err := scanRecordRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, rows.Err()
}

func (r *PostgresRecordsRepo) Get(ctx context.Context, recordType, tenantID, id string) (map[string]any, error) {
	table, err := tableFor(recordType)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE tenant_id = $1 AND id = $2", table)
	rows, err := r.db.QueryContext(ctx, query, tenantID, id)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "get " + recordType, Cause: err}
	}
	defer rows.Close()

	out, err := scanRecordRows(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sql.ErrNoRows
	}
	return out[0], rows.Err()
}

func (r *PostgresRecordsRepo) Insert(ctx context.Context, recordType, tenantID string, records []map[string]any) ([]string, error) {
	table, err := tableFor(recordType)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Rows in one batch may carry different key sets; insert over the union
	// with NULLs for the gaps, in one statement.
	colSet := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			colSet[k] = true
		}
	}
	delete(colSet, "id")
	delete(colSet, "tenant_id")

	cols := make([]string, 0, len(colSet)+1)
	cols = append(cols, "tenant_id")
	for k := range colSet {
		if err := checkIdent(k); err != nil {
			return nil, err
		}
		cols = append(cols, k)
	}
	sort.Strings(cols[1:])

	valueRows := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*len(cols))
	argN := 1
	for _, rec := range records {
		ph := make([]string, 0, len(cols))
		for _, c := range cols {
			var v any
			if c == "tenant_id" {
				v = tenantID
			} else {
				v = rec[c]
			}
			dbv, err := toDBValue(v)
			if err != nil {
				return nil, err
			}
			ph = append(ph, fmt.Sprintf("$%d", argN))
			args = append(args, dbv)
			argN++
		}
		valueRows = append(valueRows, "("+strings.Join(ph, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s RETURNING id::text",
		table, strings.Join(cols, ", "), strings.Join(valueRows, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// Store-level natural-key constraint fired: report as duplicate
			// so bulk callers can skip instead of failing the batch.
			return nil, &domain.DuplicateRecordError{RecordType: recordType, Key: pqErr.Detail}
		}
		return nil, &domain.StoreUnavailableError{Op: "insert " + recordType, Cause: err}
	}
	defer rows.Close()

	ids := make([]string, 0, len(records))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRecordsRepo) Update(ctx context.Context, recordType, tenantID, id string, patch map[string]any) (map[string]any, error) {
	table, err := tableFor(recordType)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return r.Get(ctx, recordType, tenantID, id)
	}

	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	setParts := []string{}
	args := []any{}
	argN := 1
	for _, k := range keys {
		if k == "id" || k == "tenant_id" {
			continue
		}
		if err := checkIdent(k); err != nil {
			return nil, err
		}
		dbv, err := toDBValue(patch[k])
		if err != nil {
			return nil, err
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", k, argN))
		args = append(args, dbv)
		argN++
	}
	if len(setParts) == 0 {
		return r.Get(ctx, recordType, tenantID, id)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE tenant_id = $%d AND id = $%d",
		table, strings.Join(setParts, ", "), argN, argN+1)
	args = append(args, tenantID, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "update " + recordType, Cause: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sql.ErrNoRows
	}
	return r.Get(ctx, recordType, tenantID, id)
}

func (r *PostgresRecordsRepo) Delete(ctx context.Context, recordType, tenantID, id string) error {
	table, err := tableFor(recordType)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE tenant_id = $1 AND id = $2", table), tenantID, id)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "delete " + recordType, Cause: err}
	}
	return nil
}

func (r *PostgresRecordsRepo) DeleteWhere(ctx context.Context, recordType, tenantID string, equals map[string]any) error {
	table, err := tableFor(recordType)
	if err != nil {
		return err
	}
	if len(equals) == 0 {
		return fmt.Errorf("DeleteWhere requires at least one filter")
	}

	keys := make([]string, 0, len(equals))
	for k := range equals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	for _, k := range keys {
		if err := checkIdent(k); err != nil {
			return err
		}
		where = append(where, fmt.Sprintf("%s = $%d", k, argN))
		args = append(args, equals[k])
		argN++
	}

	_, err = r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(where, " AND ")), args...)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "delete " + recordType, Cause: err}
	}
	return nil
}

func (r *PostgresRecordsRepo) Exists(ctx context.Context, recordType, tenantID string, key map[string]any) (bool, error) {
	table, err := tableFor(recordType)
	if err != nil {
		return false, err
	}

	keys := make([]string, 0, len(key))
	for k := range key {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2
	for _, k := range keys {
		if err := checkIdent(k); err != nil {
			return false, err
		}
		where = append(where, fmt.Sprintf("%s = $%d", k, argN))
		args = append(args, key[k])
		argN++
	}

	var one int
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", table, strings.Join(where, " AND "))
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &domain.StoreUnavailableError{Op: "exists " + recordType, Cause: err}
	}
	return true, nil
}

func (r *PostgresRecordsRepo) Count(ctx context.Context, recordType, tenantID string) (int, error) {
	table, err := tableFor(recordType)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant_id = $1", table), tenantID).Scan(&n)
	if err != nil {
		return 0, &domain.StoreUnavailableError{Op: "count " + recordType, Cause: err}
	}
	return n, nil
}

// scanRecordRows turns a dynamic SELECT * result into field maps, dropping
// NULL columns so responses stay sparse like the write-side maps.
func scanRecordRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(map[string]any, len(cols))
		for i, c := range cols {
			if vals[i] == nil {
				continue
			}
			rec[c] = fromDBValue(c, vals[i])
		}
		out = append(out, rec)
	}
	return out, nil
}
