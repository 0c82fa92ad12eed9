package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
	"recordhub-data/internal/repository"
	"recordhub-data/internal/service"
)

// TenantsHandler 租户管理 Handler（开通、查询、状态变更）
type TenantsHandler struct {
	tenants *service.TenantService
	logger  *zap.Logger
}

// NewTenantsHandler 创建租户 Handler
func NewTenantsHandler(tenants *service.TenantService, logger *zap.Logger) *TenantsHandler {
	return &TenantsHandler{tenants: tenants, logger: logger}
}

// ServeCollection 处理 /api/v1/admin/tenants
func (h *TenantsHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.provision(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ServeItem 处理 /api/v1/admin/tenants/{id} 和 /api/v1/admin/tenants/{id}/status
func (h *TenantsHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/admin/tenants/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "" && r.Method == http.MethodGet:
		h.get(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPut:
		h.setStatus(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *TenantsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TenantFilters{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
	tenants, total, err := h.tenants.List(r.Context(), filter,
		parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 20))
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(tenants))
	for _, t := range tenants {
		items = append(items, t.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
	}))
}

func (h *TenantsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	tenant, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(tenant.ToJSON()))
}

func (h *TenantsHandler) provision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantName string `json:"tenant_name"`
		Domain     string `json:"domain"`
		Email      string `json:"email"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	tenant, err := h.tenants.Provision(r.Context(), &domain.Tenant{
		TenantName: req.TenantName,
		Domain:     req.Domain,
		Email:      req.Email,
	})
	if err != nil {
		h.logger.Error("tenant provisioning failed", zap.String("tenant_name", req.TenantName), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(tenant.ToJSON()))
}

func (h *TenantsHandler) setStatus(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, 4096, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}
	if err := h.tenants.SetStatus(r.Context(), id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"tenant_id": id, "status": req.Status}))
}
