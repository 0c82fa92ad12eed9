package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"recordhub-data/internal/service"
)

// maxImportBytes 上传文件大小上限（20MB）
const maxImportBytes = 20 << 20

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExchangeHandler Excel 数据交换：模板下载、批量导入、数据导出
type ExchangeHandler struct {
	templates *service.TemplateService
	importer  *service.ImportService
	stats     *service.StatsService // 可为 nil
	logger    *zap.Logger
}

// NewExchangeHandler 创建数据交换 Handler
func NewExchangeHandler(templates *service.TemplateService, importer *service.ImportService, stats *service.StatsService, logger *zap.Logger) *ExchangeHandler {
	return &ExchangeHandler{templates: templates, importer: importer, stats: stats, logger: logger}
}

// Template 下载导入模板
func (h *ExchangeHandler) Template(w http.ResponseWriter, r *http.Request, recordType string) {
	data, err := h.templates.GenerateTemplate(r.Context(), tenantID(r), recordType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeWorkbook(w, fmt.Sprintf("%s_import_template.xlsx", recordType), data)
}

// Export 导出全部数据
func (h *ExchangeHandler) Export(w http.ResponseWriter, r *http.Request, recordType string) {
	data, err := h.templates.Export(r.Context(), tenantID(r), recordType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeWorkbook(w, fmt.Sprintf("%s_export.xlsx", recordType), data)
}

// Import 批量导入（multipart 的 file 字段）
func (h *ExchangeHandler) Import(w http.ResponseWriter, r *http.Request, recordType string) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid multipart form"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("file not found in request"))
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("failed to read file"))
		return
	}

	tid := tenantID(r)
	result, err := h.importer.Import(r.Context(), tid, recordType, fileBytes)
	if err != nil {
		h.logger.Warn("import failed",
			zap.String("record_type", recordType),
			zap.String("tenant_id", tid),
			zap.Error(err))
		writeError(w, err)
		return
	}
	if h.stats != nil && tid != "" {
		h.stats.Invalidate(r.Context(), tid)
	}
	// 部分失败也是 200：调用方必须检查 result.errors
	writeJSON(w, http.StatusOK, Ok(result.ToJSON()))
}

func writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
