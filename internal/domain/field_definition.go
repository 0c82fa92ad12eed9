package domain

import (
	"database/sql"
	"time"
)

// Field types understood by the template generator and import derivations.
const (
	FieldTypeText   = "text"
	FieldTypeEmail  = "email"
	FieldTypePhone  = "phone"
	FieldTypeNumber = "number"
	FieldTypeDate   = "date"
	FieldTypeSelect = "select"
)

// FieldDefinition 租户级字段配置（对应 field_definitions 表）
// (tenant_id, record_type, field_name) 唯一；mandatory 字段必须同时 enabled。
type FieldDefinition struct {
	TenantID     string         `db:"tenant_id"`
	RecordType   string         `db:"record_type"`
	FieldName    string         `db:"field_name"`
	FieldLabel   string         `db:"field_label"`
	FieldType    string         `db:"field_type"`
	FieldOptions []string       `db:"field_options"` // select 类型的选项，保持顺序
	IsEnabled    bool           `db:"is_enabled"`
	IsMandatory  bool           `db:"is_mandatory"`
	DisplayOrder int            `db:"display_order"`
	FieldSection string         `db:"field_section"`
	Placeholder  sql.NullString `db:"placeholder"`
	HelpText     sql.NullString `db:"help_text"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// ToJSON 转换为 HTTP 响应格式
func (f *FieldDefinition) ToJSON() map[string]any {
	m := map[string]any{
		"tenant_id":     f.TenantID,
		"record_type":   f.RecordType,
		"field_name":    f.FieldName,
		"field_label":   f.FieldLabel,
		"field_type":    f.FieldType,
		"is_enabled":    f.IsEnabled,
		"is_mandatory":  f.IsMandatory,
		"display_order": f.DisplayOrder,
		"field_section": f.FieldSection,
	}
	if len(f.FieldOptions) > 0 {
		m["field_options"] = f.FieldOptions
	}
	if f.Placeholder.Valid {
		m["placeholder"] = f.Placeholder.String
	}
	if f.HelpText.Valid {
		m["help_text"] = f.HelpText.String
	}
	return m
}

// FieldUpdate bulk-update 的单项（enable/order/label/placeholder/help-text）
type FieldUpdate struct {
	FieldName    string  `json:"field_name"`
	IsEnabled    *bool   `json:"is_enabled,omitempty"`
	DisplayOrder *int    `json:"display_order,omitempty"`
	FieldLabel   *string `json:"field_label,omitempty"`
	Placeholder  *string `json:"placeholder,omitempty"`
	HelpText     *string `json:"help_text,omitempty"`
}

// FieldUpdateResult bulk-update 的单项结果：一个字段失败不回滚其它字段
type FieldUpdateResult struct {
	FieldName string `json:"field_name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}
