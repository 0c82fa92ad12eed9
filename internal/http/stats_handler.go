package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"recordhub-data/internal/service"
)

// StatsHandler 导航统计 Handler
type StatsHandler struct {
	stats  *service.StatsService
	logger *zap.Logger
}

// NewStatsHandler 创建统计 Handler
func NewStatsHandler(stats *service.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, logger: logger}
}

// Get 返回每个记录类型的行数
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	counts, err := h.stats.NavigationStats(r.Context(), tenantID(r))
	if err != nil {
		h.logger.Error("navigation stats failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(counts))
}
