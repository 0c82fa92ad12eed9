package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"recordhub-data/internal/domain"
)

// PostgresTenantsRepo 租户Repository实现
type PostgresTenantsRepo struct {
	db *sql.DB
}

// NewPostgresTenantsRepo 创建租户Repository
func NewPostgresTenantsRepo(db *sql.DB) *PostgresTenantsRepo {
	return &PostgresTenantsRepo{db: db}
}

var _ TenantsRepo = (*PostgresTenantsRepo)(nil)

const tenantColumns = `
	tenant_id::text,
	tenant_name,
	COALESCE(domain, '') as domain,
	COALESCE(email, '') as email,
	COALESCE(status, 'active') as status,
	COALESCE(metadata, '{}'::jsonb) as metadata
`

func scanTenant(row rowScanner) (*domain.Tenant, error) {
	var t domain.Tenant
	var metadataRaw json.RawMessage
	err := row.Scan(
		&t.TenantID,
		&t.TenantName,
		&t.Domain,
		&t.Email,
		&t.Status,
		&metadataRaw,
	)
	if err != nil {
		return nil, err
	}
	t.Metadata = metadataRaw
	return &t, nil
}

// GetTenant 根据tenant_id获取租户信息
func (r *PostgresTenantsRepo) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE tenant_id = $1::uuid`
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, tenantID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, &domain.StoreUnavailableError{Op: "tenants.get", Cause: err}
	}
	return t, nil
}

// ListTenants 查询租户列表（支持分页、过滤、搜索）
func (r *PostgresTenantsRepo) ListTenants(ctx context.Context, filter TenantFilters, page, size int) ([]*domain.Tenant, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	where := []string{}
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.Search != "" {
		where = append(where, fmt.Sprintf("tenant_name ILIKE $%d", argIdx))
		args = append(args, "%"+filter.Search+"%")
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM tenants" + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, &domain.StoreUnavailableError{Op: "tenants.count", Cause: err}
	}

	query := fmt.Sprintf(
		"SELECT "+tenantColumns+" FROM tenants%s ORDER BY tenant_name LIMIT $%d OFFSET $%d",
		whereClause, argIdx, argIdx+1,
	)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, &domain.StoreUnavailableError{Op: "tenants.list", Cause: err}
	}
	defer rows.Close()

	tenants := []*domain.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, &domain.StoreUnavailableError{Op: "tenants.list", Cause: err}
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &domain.StoreUnavailableError{Op: "tenants.list", Cause: err}
	}
	return tenants, total, nil
}

// CreateTenant 创建新租户
func (r *PostgresTenantsRepo) CreateTenant(ctx context.Context, tenant *domain.Tenant) (string, error) {
	if tenant.TenantName == "" {
		return "", domain.NewValidationError("tenant_name is required")
	}
	status := tenant.Status
	if status == "" {
		status = "active"
	}
	metadata := tenant.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}

	query := `
		INSERT INTO tenants (tenant_name, domain, email, status, metadata)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5::jsonb)
		RETURNING tenant_id::text
	`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		tenant.TenantName, tenant.Domain, tenant.Email, status, []byte(metadata),
	).Scan(&id)
	if err != nil {
		return "", &domain.StoreUnavailableError{Op: "tenants.create", Cause: err}
	}
	return id, nil
}

// SetTenantStatus 更新租户状态
func (r *PostgresTenantsRepo) SetTenantStatus(ctx context.Context, tenantID string, status string) error {
	query := `UPDATE tenants SET status = $1 WHERE tenant_id = $2::uuid`
	res, err := r.db.ExecContext(ctx, query, status, tenantID)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "tenants.set_status", Cause: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.StoreUnavailableError{Op: "tenants.set_status", Cause: err}
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
