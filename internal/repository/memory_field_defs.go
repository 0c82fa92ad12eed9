package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"recordhub-data/internal/domain"
)

// MemoryFieldDefsRepo 字段配置的内存实现（dev fallback + 单测）
type MemoryFieldDefsRepo struct {
	mu sync.RWMutex

	// tenantID -> recordType -> fieldName -> def
	defs map[string]map[string]map[string]*domain.FieldDefinition
}

func NewMemoryFieldDefsRepo() *MemoryFieldDefsRepo {
	return &MemoryFieldDefsRepo{
		defs: map[string]map[string]map[string]*domain.FieldDefinition{},
	}
}

func (r *MemoryFieldDefsRepo) bucket(tenantID, recordType string) map[string]*domain.FieldDefinition {
	if r.defs[tenantID] == nil {
		r.defs[tenantID] = map[string]map[string]*domain.FieldDefinition{}
	}
	if r.defs[tenantID][recordType] == nil {
		r.defs[tenantID][recordType] = map[string]*domain.FieldDefinition{}
	}
	return r.defs[tenantID][recordType]
}

// peek 只读访问，RLock 下使用
func (r *MemoryFieldDefsRepo) peek(tenantID, recordType string) map[string]*domain.FieldDefinition {
	return r.defs[tenantID][recordType]
}

func (r *MemoryFieldDefsRepo) List(_ context.Context, tenantID, recordType string) ([]*domain.FieldDefinition, error) {
	return r.list(tenantID, recordType, false), nil
}

func (r *MemoryFieldDefsRepo) ListEnabled(_ context.Context, tenantID, recordType string) ([]*domain.FieldDefinition, error) {
	return r.list(tenantID, recordType, true), nil
}

func (r *MemoryFieldDefsRepo) list(tenantID, recordType string, enabledOnly bool) []*domain.FieldDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.FieldDefinition{}
	for _, def := range r.peek(tenantID, recordType) {
		if enabledOnly && !def.IsEnabled {
			continue
		}
		cp := *def
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FieldSection != out[j].FieldSection {
			return out[i].FieldSection < out[j].FieldSection
		}
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out
}

func (r *MemoryFieldDefsRepo) Get(_ context.Context, tenantID, recordType, fieldName string) (*domain.FieldDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.peek(tenantID, recordType)[fieldName]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *def
	return &cp, nil
}

func (r *MemoryFieldDefsRepo) Upsert(_ context.Context, def *domain.FieldDefinition) error {
	if def.TenantID == "" || def.RecordType == "" || def.FieldName == "" {
		return fmt.Errorf("tenant_id, record_type and field_name are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *def
	if cp.IsMandatory {
		cp.IsEnabled = true
	}
	cp.UpdatedAt = time.Now()
	r.bucket(def.TenantID, def.RecordType)[def.FieldName] = &cp
	return nil
}

func (r *MemoryFieldDefsRepo) SetEnabled(_ context.Context, tenantID, recordType, fieldName string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.bucket(tenantID, recordType)[fieldName]
	if !ok {
		return sql.ErrNoRows
	}
	if !enabled && def.IsMandatory {
		return &domain.MandatoryFieldProtectedError{RecordType: recordType, FieldName: fieldName}
	}
	def.IsEnabled = enabled
	def.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryFieldDefsRepo) ApplyUpdate(_ context.Context, tenantID, recordType string, upd domain.FieldUpdate) error {
	if upd.FieldName == "" {
		return fmt.Errorf("field_name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	def, ok := r.bucket(tenantID, recordType)[upd.FieldName]
	if !ok {
		return sql.ErrNoRows
	}
	if upd.IsEnabled != nil && !*upd.IsEnabled && def.IsMandatory {
		return &domain.MandatoryFieldProtectedError{RecordType: recordType, FieldName: upd.FieldName}
	}
	if upd.IsEnabled != nil {
		def.IsEnabled = *upd.IsEnabled
	}
	if upd.DisplayOrder != nil {
		def.DisplayOrder = *upd.DisplayOrder
	}
	if upd.FieldLabel != nil {
		def.FieldLabel = *upd.FieldLabel
	}
	if upd.Placeholder != nil {
		def.Placeholder = sql.NullString{String: *upd.Placeholder, Valid: true}
	}
	if upd.HelpText != nil {
		def.HelpText = sql.NullString{String: *upd.HelpText, Valid: true}
	}
	def.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryFieldDefsRepo) SeedDefaults(_ context.Context, tenantID string, defs []*domain.FieldDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, def := range defs {
		bucket := r.bucket(tenantID, def.RecordType)
		if _, exists := bucket[def.FieldName]; exists {
			continue
		}
		cp := *def
		cp.TenantID = tenantID
		cp.UpdatedAt = time.Now()
		bucket[def.FieldName] = &cp
	}
	return nil
}
