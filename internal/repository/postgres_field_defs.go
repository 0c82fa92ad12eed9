package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"recordhub-data/internal/domain"
)

// PostgresFieldDefsRepo 字段配置的 Postgres 实现
type PostgresFieldDefsRepo struct {
	db *sql.DB
}

func NewPostgresFieldDefsRepo(db *sql.DB) *PostgresFieldDefsRepo {
	return &PostgresFieldDefsRepo{db: db}
}

const fieldDefColumns = `
	tenant_id::text, record_type, field_name, field_label, field_type,
	COALESCE(field_options, '{}'), is_enabled, is_mandatory,
	display_order, field_section, placeholder, help_text, updated_at`

func (r *PostgresFieldDefsRepo) List(ctx context.Context, tenantID, recordType string) ([]*domain.FieldDefinition, error) {
	return r.list(ctx, tenantID, recordType, false)
}

func (r *PostgresFieldDefsRepo) ListEnabled(ctx context.Context, tenantID, recordType string) ([]*domain.FieldDefinition, error) {
	return r.list(ctx, tenantID, recordType, true)
}

func (r *PostgresFieldDefsRepo) list(ctx context.Context, tenantID, recordType string, enabledOnly bool) ([]*domain.FieldDefinition, error) {
	query := `
		SELECT ` + fieldDefColumns + `
		FROM field_definitions
		WHERE tenant_id = $1 AND record_type = $2`
	if enabledOnly {
		query += ` AND is_enabled = true`
	}
	query += `
		ORDER BY field_section, display_order, field_name`

	rows, err := r.db.QueryContext(ctx, query, tenantID, recordType)
	if err != nil {
		return nil, &domain.StoreUnavailableError{Op: "list field_definitions", Cause: err}
	}
	defer rows.Close()

	out := []*domain.FieldDefinition{}
	for rows.Next() {
		def, err := scanFieldDef(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func (r *PostgresFieldDefsRepo) Get(ctx context.Context, tenantID, recordType, fieldName string) (*domain.FieldDefinition, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+fieldDefColumns+`
		FROM field_definitions
		WHERE tenant_id = $1 AND record_type = $2 AND field_name = $3`,
		tenantID, recordType, fieldName)
	return scanFieldDef(row)
}

func (r *PostgresFieldDefsRepo) Upsert(ctx context.Context, def *domain.FieldDefinition) error {
	if def.IsMandatory {
		def.IsEnabled = true
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO field_definitions (
			tenant_id, record_type, field_name, field_label, field_type,
			field_options, is_enabled, is_mandatory, display_order,
			field_section, placeholder, help_text, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP)
		ON CONFLICT (tenant_id, record_type, field_name)
		DO UPDATE SET field_label = EXCLUDED.field_label,
		              field_type = EXCLUDED.field_type,
		              field_options = EXCLUDED.field_options,
		              is_enabled = EXCLUDED.is_enabled,
		              is_mandatory = EXCLUDED.is_mandatory,
		              display_order = EXCLUDED.display_order,
		              field_section = EXCLUDED.field_section,
		              placeholder = EXCLUDED.placeholder,
		              help_text = EXCLUDED.help_text,
		              updated_at = CURRENT_TIMESTAMP`,
		def.TenantID, def.RecordType, def.FieldName, def.FieldLabel, def.FieldType,
		pq.Array(def.FieldOptions), def.IsEnabled, def.IsMandatory, def.DisplayOrder,
		def.FieldSection, nullStringToAny(def.Placeholder), nullStringToAny(def.HelpText))
	if err != nil {
		return &domain.StoreUnavailableError{Op: "upsert field_definition", Cause: err}
	}
	return nil
}

func (r *PostgresFieldDefsRepo) SetEnabled(ctx context.Context, tenantID, recordType, fieldName string, enabled bool) error {
	if !enabled {
		if err := r.rejectIfMandatory(ctx, tenantID, recordType, fieldName); err != nil {
			return err
		}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE field_definitions
		SET is_enabled = $4, updated_at = CURRENT_TIMESTAMP
		WHERE tenant_id = $1 AND record_type = $2 AND field_name = $3`,
		tenantID, recordType, fieldName, enabled)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "set field enabled", Cause: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresFieldDefsRepo) ApplyUpdate(ctx context.Context, tenantID, recordType string, upd domain.FieldUpdate) error {
	if upd.FieldName == "" {
		return fmt.Errorf("field_name is required")
	}
	if upd.IsEnabled != nil && !*upd.IsEnabled {
		if err := r.rejectIfMandatory(ctx, tenantID, recordType, upd.FieldName); err != nil {
			return err
		}
	}

	setParts := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{tenantID, recordType, upd.FieldName}
	argN := 4
	addSet := func(col string, v any) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, argN))
		args = append(args, v)
		argN++
	}
	if upd.IsEnabled != nil {
		addSet("is_enabled", *upd.IsEnabled)
	}
	if upd.DisplayOrder != nil {
		addSet("display_order", *upd.DisplayOrder)
	}
	if upd.FieldLabel != nil {
		addSet("field_label", *upd.FieldLabel)
	}
	if upd.Placeholder != nil {
		addSet("placeholder", *upd.Placeholder)
	}
	if upd.HelpText != nil {
		addSet("help_text", *upd.HelpText)
	}

	query := fmt.Sprintf(`
		UPDATE field_definitions
		SET %s
		WHERE tenant_id = $1 AND record_type = $2 AND field_name = $3`,
		strings.Join(setParts, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return &domain.StoreUnavailableError{Op: "update field_definition", Cause: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresFieldDefsRepo) SeedDefaults(ctx context.Context, tenantID string, defs []*domain.FieldDefinition) error {
	for _, def := range defs {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO field_definitions (
				tenant_id, record_type, field_name, field_label, field_type,
				field_options, is_enabled, is_mandatory, display_order,
				field_section, placeholder, help_text, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP)
			ON CONFLICT (tenant_id, record_type, field_name) DO NOTHING`,
			tenantID, def.RecordType, def.FieldName, def.FieldLabel, def.FieldType,
			pq.Array(def.FieldOptions), def.IsEnabled, def.IsMandatory, def.DisplayOrder,
			def.FieldSection, nullStringToAny(def.Placeholder), nullStringToAny(def.HelpText))
		if err != nil {
			return &domain.StoreUnavailableError{Op: "seed field_definitions", Cause: err}
		}
	}
	return nil
}

func (r *PostgresFieldDefsRepo) rejectIfMandatory(ctx context.Context, tenantID, recordType, fieldName string) error {
	var mandatory bool
	err := r.db.QueryRowContext(ctx, `
		SELECT is_mandatory FROM field_definitions
		WHERE tenant_id = $1 AND record_type = $2 AND field_name = $3`,
		tenantID, recordType, fieldName).Scan(&mandatory)
	if err == sql.ErrNoRows {
		return sql.ErrNoRows
	}
	if err != nil {
		return &domain.StoreUnavailableError{Op: "check mandatory field", Cause: err}
	}
	if mandatory {
		return &domain.MandatoryFieldProtectedError{RecordType: recordType, FieldName: fieldName}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFieldDef(row rowScanner) (*domain.FieldDefinition, error) {
	var def domain.FieldDefinition
	var options pq.StringArray
	err := row.Scan(
		&def.TenantID, &def.RecordType, &def.FieldName, &def.FieldLabel, &def.FieldType,
		&options, &def.IsEnabled, &def.IsMandatory,
		&def.DisplayOrder, &def.FieldSection, &def.Placeholder, &def.HelpText, &def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	def.FieldOptions = []string(options)
	return &def, nil
}
