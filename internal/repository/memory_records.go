package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"recordhub-data/internal/domain"
)

// MemoryRecordsRepo: DB 未就绪时的内存实现，也是引擎单测的存储。
// - 按 tenant_id 隔离
// - ids 使用 uuid
// - Insert 模拟自然键唯一约束（冲突返回 DuplicateRecordError）
type MemoryRecordsRepo struct {
	mu sync.RWMutex

	// recordType -> tenantID -> id -> record
	data map[string]map[string]map[string]map[string]any

	// natural-key unique constraints enforced on Insert, mirroring the
	// partial unique indexes in migrations. recordType -> key fields.
	uniqueKeys map[string][]string

	// InsertErr, when set, makes the nth (1-based) Insert call fail.
	// Used by tests to exercise per-batch error recording.
	InsertErr        error
	FailInsertCall   int
	insertCallNumber int
}

func NewMemoryRecordsRepo() *MemoryRecordsRepo {
	return &MemoryRecordsRepo{
		data: map[string]map[string]map[string]map[string]any{},
		// Mirrors the partial unique indexes in migrations: the constraint
		// only applies when every key field is present.
		uniqueKeys: map[string][]string{
			"accounts": {"account_name", "billing_city"},
			"contacts": {"email"},
			"products": {"product_name"},
		},
	}
}

func (r *MemoryRecordsRepo) bucket(recordType, tenantID string) map[string]map[string]any {
	if _, ok := recordTables[recordType]; !ok {
		return nil
	}
	if r.data[recordType] == nil {
		r.data[recordType] = map[string]map[string]map[string]any{}
	}
	if r.data[recordType][tenantID] == nil {
		r.data[recordType][tenantID] = map[string]map[string]any{}
	}
	return r.data[recordType][tenantID]
}

// peek 只读访问，RLock 下使用；第二个返回值区分未知记录类型和空桶
func (r *MemoryRecordsRepo) peek(recordType, tenantID string) (map[string]map[string]any, bool) {
	if _, ok := recordTables[recordType]; !ok {
		return nil, false
	}
	return r.data[recordType][tenantID], true
}

func (r *MemoryRecordsRepo) Select(_ context.Context, recordType, tenantID string, filters RecordFilters, page, size int) ([]map[string]any, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, known := r.peek(recordType, tenantID)
	if !known {
		return nil, 0, fmt.Errorf("unknown record type: %q", recordType)
	}

	matched := []map[string]any{}
	for _, rec := range bucket {
		if !matchesFilters(recordType, rec, filters) {
			continue
		}
		matched = append(matched, copyRecord(rec))
	}
	sort.Slice(matched, func(i, j int) bool {
		ci, _ := matched[i]["created_at"].(time.Time)
		cj, _ := matched[j]["created_at"].(time.Time)
		if ci.Equal(cj) {
			si, _ := matched[i]["id"].(string)
			sj, _ := matched[j]["id"].(string)
			return si < sj
		}
		return ci.After(cj)
	})

	total := len(matched)
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
	return matched[start:end], total, nil
}

func (r *MemoryRecordsRepo) Get(_ context.Context, recordType, tenantID, id string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, known := r.peek(recordType, tenantID)
	if !known {
		return nil, fmt.Errorf("unknown record type: %q", recordType)
	}
	rec, ok := bucket[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return copyRecord(rec), nil
}

func (r *MemoryRecordsRepo) Insert(_ context.Context, recordType, tenantID string, records []map[string]any) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.insertCallNumber++
	if r.InsertErr != nil && r.insertCallNumber == r.FailInsertCall {
		return nil, r.InsertErr
	}

	bucket := r.bucket(recordType, tenantID)
	if bucket == nil {
		return nil, fmt.Errorf("unknown record type: %q", recordType)
	}

	// Constraint check over the whole batch before writing anything, so a
	// failed bulk insert leaves no partial rows (single-statement semantics).
	if keyFields, ok := r.uniqueKeys[recordType]; ok {
		for _, rec := range records {
			if key := naturalKeyOf(rec, keyFields); key != "" {
				for _, existing := range bucket {
					if naturalKeyOf(existing, keyFields) == key {
						return nil, &domain.DuplicateRecordError{RecordType: recordType, Key: key}
					}
				}
			}
		}
	}

	ids := make([]string, 0, len(records))
	now := time.Now()
	for _, rec := range records {
		stored := copyRecord(rec)
		id := uuid.New().String()
		stored["id"] = id
		stored["created_at"] = now
		bucket[id] = stored
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *MemoryRecordsRepo) Update(_ context.Context, recordType, tenantID, id string, patch map[string]any) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.bucket(recordType, tenantID)
	if bucket == nil {
		return nil, fmt.Errorf("unknown record type: %q", recordType)
	}
	rec, ok := bucket[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	for k, v := range patch {
		if k == "id" || k == "tenant_id" {
			continue
		}
		if v == nil {
			delete(rec, k)
			continue
		}
		rec[k] = v
	}
	return copyRecord(rec), nil
}

func (r *MemoryRecordsRepo) Delete(_ context.Context, recordType, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.bucket(recordType, tenantID)
	if bucket == nil {
		return fmt.Errorf("unknown record type: %q", recordType)
	}
	delete(bucket, id)
	return nil
}

func (r *MemoryRecordsRepo) DeleteWhere(_ context.Context, recordType, tenantID string, equals map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.bucket(recordType, tenantID)
	if bucket == nil {
		return fmt.Errorf("unknown record type: %q", recordType)
	}
	for id, rec := range bucket {
		match := true
		for k, v := range equals {
			if rec[k] != v {
				match = false
				break
			}
		}
		if match {
			delete(bucket, id)
		}
	}
	return nil
}

func (r *MemoryRecordsRepo) Exists(_ context.Context, recordType, tenantID string, key map[string]any) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, known := r.peek(recordType, tenantID)
	if !known {
		return false, fmt.Errorf("unknown record type: %q", recordType)
	}
	for _, rec := range bucket {
		match := true
		for k, v := range key {
			rv, ok := rec[k]
			if !ok || fmt.Sprintf("%v", rv) != fmt.Sprintf("%v", v) {
				match = false
				break
			}
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRecordsRepo) Count(_ context.Context, recordType, tenantID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, known := r.peek(recordType, tenantID)
	if !known {
		return 0, fmt.Errorf("unknown record type: %q", recordType)
	}
	return len(bucket), nil
}

func matchesFilters(recordType string, rec map[string]any, filters RecordFilters) bool {
	for k, v := range filters.Equals {
		rv, _ := rec[k].(string)
		if rv != v {
			return false
		}
	}
	if filters.Search != "" {
		needle := strings.ToLower(filters.Search)
		found := false
		for _, f := range searchFields[recordType] {
			if s, ok := rec[f].(string); ok && strings.Contains(strings.ToLower(s), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func naturalKeyOf(rec map[string]any, fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		s, _ := rec[f].(string)
		if s == "" {
			return ""
		}
		parts = append(parts, strings.ToLower(s))
	}
	return strings.Join(parts, "|")
}

func copyRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
