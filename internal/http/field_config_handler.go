package httpapi

import (
	"database/sql"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/service"
)

// FieldConfigHandler 租户字段配置管理 Handler
type FieldConfigHandler struct {
	fieldConfig *service.FieldConfigService
	logger      *zap.Logger
}

// NewFieldConfigHandler 创建字段配置 Handler
func NewFieldConfigHandler(fieldConfig *service.FieldConfigService, logger *zap.Logger) *FieldConfigHandler {
	return &FieldConfigHandler{fieldConfig: fieldConfig, logger: logger}
}

// ServeCollection 处理 /api/v1/admin/field-configs
func (h *FieldConfigHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.upsert(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ServeItem 处理 /api/v1/admin/field-configs/batch 和
// /api/v1/admin/field-configs/{record_type}/{field_name}/enabled
func (h *FieldConfigHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/admin/field-configs/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "batch" && r.Method == http.MethodPut:
		h.bulkUpdate(w, r)
	case len(parts) == 3 && parts[2] == "enabled" && r.Method == http.MethodPut:
		h.setEnabled(w, r, parts[0], parts[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *FieldConfigHandler) list(w http.ResponseWriter, r *http.Request) {
	defs, err := h.fieldConfig.List(r.Context(), tenantID(r), r.URL.Query().Get("record_type"))
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		items = append(items, d.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// upsert 请求体
type upsertFieldRequest struct {
	RecordType   string   `json:"record_type"`
	FieldName    string   `json:"field_name"`
	FieldLabel   string   `json:"field_label"`
	FieldType    string   `json:"field_type"`
	FieldOptions []string `json:"field_options"`
	IsEnabled    *bool    `json:"is_enabled"`
	IsMandatory  bool     `json:"is_mandatory"`
	DisplayOrder int      `json:"display_order"`
	FieldSection string   `json:"field_section"`
	Placeholder  string   `json:"placeholder"`
	HelpText     string   `json:"help_text"`
}

func (h *FieldConfigHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertFieldRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	def := &domain.FieldDefinition{
		TenantID:     tenantID(r),
		RecordType:   req.RecordType,
		FieldName:    req.FieldName,
		FieldLabel:   req.FieldLabel,
		FieldType:    req.FieldType,
		FieldOptions: req.FieldOptions,
		IsEnabled:    true,
		IsMandatory:  req.IsMandatory,
		DisplayOrder: req.DisplayOrder,
		FieldSection: req.FieldSection,
	}
	if req.IsEnabled != nil {
		def.IsEnabled = *req.IsEnabled
	}
	if req.Placeholder != "" {
		def.Placeholder = sql.NullString{String: req.Placeholder, Valid: true}
	}
	if req.HelpText != "" {
		def.HelpText = sql.NullString{String: req.HelpText, Valid: true}
	}

	saved, err := h.fieldConfig.Upsert(r.Context(), def)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved.ToJSON()))
}

func (h *FieldConfigHandler) setEnabled(w http.ResponseWriter, r *http.Request, recordType, fieldName string) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := readBodyJSON(r, 4096, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	if err := h.fieldConfig.SetEnabled(r.Context(), tenantID(r), recordType, fieldName, req.Enabled); err != nil {
		h.logger.Warn("set field enabled failed",
			zap.String("record_type", recordType),
			zap.String("field_name", fieldName),
			zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"field_name": fieldName,
		"enabled":    req.Enabled,
	}))
}

func (h *FieldConfigHandler) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecordType string               `json:"record_type"`
		Updates    []domain.FieldUpdate `json:"updates"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	results, err := h.fieldConfig.BulkUpdate(r.Context(), tenantID(r), req.RecordType, req.Updates)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(results))
}
