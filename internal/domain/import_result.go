package domain

// BatchError 单个批次的插入失败：记录后继续处理后续批次
type BatchError struct {
	Batch   int    `json:"batch"`
	Message string `json:"message"`
}

// ImportResult 一次导入作业的汇总。errors 非空时 HTTP 层仍然返回成功：
// 部分失败是这个引擎的正常结果，调用方必须检查 errors。
type ImportResult struct {
	Total      int          `json:"total"`
	Imported   int          `json:"imported"`
	Skipped    int          `json:"skipped"`
	Duplicates []string     `json:"duplicates"`
	Errors     []BatchError `json:"errors"`
}

// NewImportResult returns a result with non-nil slices so the JSON encoding
// always carries duplicates/errors arrays.
func NewImportResult() *ImportResult {
	return &ImportResult{Duplicates: []string{}, Errors: []BatchError{}}
}

// ToJSON 转换为 HTTP 响应格式
func (r *ImportResult) ToJSON() map[string]any {
	return map[string]any{
		"total":      r.Total,
		"imported":   r.Imported,
		"skipped":    r.Skipped,
		"duplicates": r.Duplicates,
		"errors":     r.Errors,
	}
}
