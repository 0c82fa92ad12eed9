package domain

import "encoding/json"

// Tenant 租户领域模型（对应 tenants 表）
type Tenant struct {
	TenantID   string `db:"tenant_id"`   // UUID, PRIMARY KEY
	TenantName string `db:"tenant_name"` // VARCHAR(255), NOT NULL
	Domain     string `db:"domain"`      // VARCHAR(255), UNIQUE, nullable
	Email      string `db:"email"`       // VARCHAR(255), nullable
	Status     string `db:"status"`      // VARCHAR(50), DEFAULT 'active'

	// 扩展配置
	Metadata json.RawMessage `db:"metadata"` // JSONB, nullable
}

// ToJSON 转换为API响应格式
func (t *Tenant) ToJSON() map[string]any {
	m := map[string]any{
		"tenant_id":   t.TenantID,
		"tenant_name": t.TenantName,
		"domain":      t.Domain,
		"email":       t.Email,
		"status":      t.Status,
	}
	if len(t.Metadata) > 0 {
		m["metadata"] = t.Metadata
	}
	return m
}
