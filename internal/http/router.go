package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recordhub-data/internal/domain"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterRecordRoutes 注册每个记录类型的 CRUD 和数据交换路由：
//
//	GET/POST   /api/v1/{type}
//	GET/PUT/DELETE /api/v1/{type}/{id}
//	GET        /api/v1/{type}/import-template
//	POST       /api/v1/{type}/import
//	GET        /api/v1/{type}/export
func (r *Router) RegisterRecordRoutes(rh *RecordsHandler, eh *ExchangeHandler) {
	for _, recordType := range domain.RecordTypes() {
		rt := recordType
		base := "/api/v1/" + rt
		dispatch := func(w http.ResponseWriter, req *http.Request) {
			rest := strings.Trim(strings.TrimPrefix(req.URL.Path, base), "/")
			switch {
			case rest == "" && req.Method == http.MethodGet:
				rh.List(w, req, rt)
			case rest == "" && req.Method == http.MethodPost:
				rh.Create(w, req, rt)
			case rest == "import-template" && req.Method == http.MethodGet:
				eh.Template(w, req, rt)
			case rest == "import" && req.Method == http.MethodPost:
				eh.Import(w, req, rt)
			case rest == "export" && req.Method == http.MethodGet:
				eh.Export(w, req, rt)
			case rest != "" && !strings.Contains(rest, "/") && req.Method == http.MethodGet:
				rh.Get(w, req, rt, rest)
			case rest != "" && !strings.Contains(rest, "/") && req.Method == http.MethodPut:
				rh.Update(w, req, rt, rest)
			case rest != "" && !strings.Contains(rest, "/") && req.Method == http.MethodDelete:
				rh.Delete(w, req, rt, rest)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}
		r.Handle(base, dispatch)
		r.Handle(base+"/", dispatch)
	}
}

// RegisterFieldConfigRoutes 注册字段配置管理路由
func (r *Router) RegisterFieldConfigRoutes(h *FieldConfigHandler) {
	r.Handle("/api/v1/admin/field-configs", h.ServeCollection)
	r.Handle("/api/v1/admin/field-configs/", h.ServeItem)
}

// RegisterStockEntryRoutes 注册库存单路由
func (r *Router) RegisterStockEntryRoutes(h *StockEntriesHandler) {
	r.Handle("/api/v1/stock-entries", h.ServeCollection)
	r.Handle("/api/v1/stock-entries/", h.ServeItem)
}

// RegisterTenantRoutes 注册租户管理路由
func (r *Router) RegisterTenantRoutes(h *TenantsHandler) {
	r.Handle("/api/v1/admin/tenants", h.ServeCollection)
	r.Handle("/api/v1/admin/tenants/", h.ServeItem)
}

// RegisterStatsRoutes 注册导航统计路由
func (r *Router) RegisterStatsRoutes(h *StatsHandler) {
	r.Handle("/api/v1/navigation-stats", h.Get)
}

// RegisterHealthRoutes 健康检查
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
