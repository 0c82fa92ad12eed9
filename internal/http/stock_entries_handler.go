package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"recordhub-data/internal/repository"
	"recordhub-data/internal/service"
)

// StockEntriesHandler 库存单 Handler
type StockEntriesHandler struct {
	stockEntries *service.StockEntryService
	logger       *zap.Logger
}

// NewStockEntriesHandler 创建库存单 Handler
func NewStockEntriesHandler(stockEntries *service.StockEntryService, logger *zap.Logger) *StockEntriesHandler {
	return &StockEntriesHandler{stockEntries: stockEntries, logger: logger}
}

// ServeCollection 处理 /api/v1/stock-entries
func (h *StockEntriesHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ServeItem 处理 /api/v1/stock-entries/{id}
func (h *StockEntriesHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/stock-entries/"), "/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *StockEntriesHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := repository.StockEntryFilters{
		EntryType: q.Get("entry_type"),
		Status:    q.Get("status"),
	}
	entries, total, err := h.stockEntries.List(r.Context(), tenantID(r), filters,
		parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 20))
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.ToJSON())
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
	}))
}

func (h *StockEntriesHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := h.stockEntries.Get(r.Context(), tenantID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(entry.ToJSON()))
}

// createEntryRequest 创建库存单请求体
type createEntryRequest struct {
	EntryType string `json:"entry_type"`
	Status    string `json:"status"`
	EntryDate string `json:"entry_date"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
	CreatedBy string `json:"created_by"`
	Items     []struct {
		ProductID   string  `json:"product_id"`
		ProductName string  `json:"product_name"`
		Quantity    float64 `json:"quantity"`
		UnitCost    float64 `json:"unit_cost"`
		Notes       string  `json:"notes"`
	} `json:"items"`
}

func (h *StockEntriesHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	svcReq := service.CreateEntryRequest{
		TenantID:  tenantID(r),
		EntryType: req.EntryType,
		Status:    req.Status,
		EntryDate: req.EntryDate,
		Reference: req.Reference,
		Notes:     req.Notes,
		CreatedBy: req.CreatedBy,
	}
	for _, item := range req.Items {
		svcReq.Items = append(svcReq.Items, service.CreateEntryItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitCost,
			Notes:       item.Notes,
		})
	}

	entry, err := h.stockEntries.Create(r.Context(), svcReq)
	if err != nil {
		h.logger.Warn("create stock entry failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(entry.ToJSON()))
}

func (h *StockEntriesHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.stockEntries.Delete(r.Context(), tenantID(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"entry_id": id}))
}
