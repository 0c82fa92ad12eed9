package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"recordhub-data/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// tenantID 从请求头或查询参数解析租户；两处都没有返回空串，由 service 层拒绝
func tenantID(r *http.Request) string {
	if id := r.Header.Get("X-Tenant-ID"); id != "" {
		return id
	}
	return r.URL.Query().Get("tenant_id")
}

// writeError 错误分类到 HTTP 状态码的统一映射
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *domain.ValidationError
		mandatory  *domain.MandatoryFieldProtectedError
		duplicate  *domain.DuplicateRecordError
		orphaned   *domain.OrphanedHeaderError
		storeErr   *domain.StoreUnavailableError
	)
	switch {
	case errors.As(err, &validation),
		errors.Is(err, domain.ErrEmptyFile),
		errors.Is(err, domain.ErrNoValidRows),
		errors.As(err, &mandatory):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.As(err, &duplicate):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case errors.Is(err, sql.ErrNoRows):
		writeJSON(w, http.StatusNotFound, Fail("not found"))
	case errors.As(err, &orphaned):
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	case errors.As(err, &storeErr):
		writeJSON(w, http.StatusServiceUnavailable, Fail("record store unavailable"))
	default:
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}
