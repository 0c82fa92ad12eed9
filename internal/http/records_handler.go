package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"recordhub-data/internal/repository"
	"recordhub-data/internal/service"
)

// RecordsHandler 业务记录 CRUD Handler（accounts/contacts/leads/products 共用）
type RecordsHandler struct {
	records *service.RecordService
	stats   *service.StatsService // 写路径后失效计数缓存，可为 nil
	logger  *zap.Logger
}

// NewRecordsHandler 创建记录 Handler
func NewRecordsHandler(records *service.RecordService, stats *service.StatsService, logger *zap.Logger) *RecordsHandler {
	return &RecordsHandler{records: records, stats: stats, logger: logger}
}

// List 分页查询记录列表
// 查询参数：page, size, search，以及 filter[field]=value 形式的等值过滤
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request, recordType string) {
	ctx := r.Context()
	q := r.URL.Query()

	filters := repository.RecordFilters{
		Search: q.Get("search"),
		Equals: map[string]string{},
	}
	for key, values := range q {
		if len(key) > 8 && key[:7] == "filter[" && key[len(key)-1] == ']' && len(values) > 0 {
			filters.Equals[key[7:len(key)-1]] = values[0]
		}
	}

	items, total, err := h.records.List(ctx, tenantID(r), recordType,
		filters, parseInt(q.Get("page"), 1), parseInt(q.Get("size"), 20))
	if err != nil {
		h.logger.Error("list records failed", zap.String("record_type", recordType), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": total,
	}))
}

// Get 查询单条记录
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request, recordType, id string) {
	record, err := h.records.Get(r.Context(), tenantID(r), recordType, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(record))
}

// Create 交互式创建（严格字段过滤 + 自然键查重）
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request, recordType string) {
	var input map[string]any
	if err := readBodyJSON(r, 1<<20, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	tid := tenantID(r)
	record, err := h.records.Create(r.Context(), tid, recordType, input)
	if err != nil {
		h.logger.Warn("create record failed", zap.String("record_type", recordType), zap.Error(err))
		writeError(w, err)
		return
	}
	h.invalidateStats(r, tid)
	writeJSON(w, http.StatusCreated, Ok(record))
}

// Update 按 id 更新（宽松过滤）
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request, recordType, id string) {
	var input map[string]any
	if err := readBodyJSON(r, 1<<20, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	record, err := h.records.Update(r.Context(), tenantID(r), recordType, id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(record))
}

// Delete 删除记录
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request, recordType, id string) {
	tid := tenantID(r)
	if err := h.records.Delete(r.Context(), tid, recordType, id); err != nil {
		writeError(w, err)
		return
	}
	h.invalidateStats(r, tid)
	writeJSON(w, http.StatusOK, Ok(map[string]string{"id": id}))
}

func (h *RecordsHandler) invalidateStats(r *http.Request, tid string) {
	if h.stats != nil && tid != "" {
		h.stats.Invalidate(r.Context(), tid)
	}
}
