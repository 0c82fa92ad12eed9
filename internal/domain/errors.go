package domain

import (
	"errors"
	"fmt"
)

// Engine error taxonomy. Handlers map these onto HTTP statuses; the batch
// loader records them into ImportResult instead of propagating.
var (
	// ErrEmptyFile: the uploaded workbook has no data rows (header only or empty).
	ErrEmptyFile = errors.New("file contains no data rows")

	// ErrNoValidRows: every data row was empty and got dropped during mapping.
	ErrNoValidRows = errors.New("no valid rows found in file")
)

// ValidationError 请求级校验失败（如缺少 tenant_id）
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// MandatoryFieldProtectedError 试图禁用/删除必填字段
type MandatoryFieldProtectedError struct {
	RecordType string
	FieldName  string
}

func (e *MandatoryFieldProtectedError) Error() string {
	return fmt.Sprintf("cannot disable or delete mandatory field %q (%s)", e.FieldName, e.RecordType)
}

// DuplicateRecordError 自然键冲突。交互式创建直接上抛；批量导入降级为 skip。
type DuplicateRecordError struct {
	RecordType string
	Key        string
}

func (e *DuplicateRecordError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.RecordType, e.Key)
}

// OrphanedHeaderError: composite 导入的补偿删除自身失败，header 残留在库里。
// 必须显式上抛，不能吞掉。
type OrphanedHeaderError struct {
	HeaderID string
	Cause    error
}

func (e *OrphanedHeaderError) Error() string {
	return fmt.Sprintf("stock entry header %s is orphaned: line insert failed and rollback also failed: %v", e.HeaderID, e.Cause)
}

func (e *OrphanedHeaderError) Unwrap() error { return e.Cause }

// StoreUnavailableError 底层存储调用失败（未被其它类别覆盖的）
type StoreUnavailableError struct {
	Op    string
	Cause error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("record store call failed: %s: %v", e.Op, e.Cause)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Cause }

// IsDuplicate reports whether err is a duplicate-record condition.
func IsDuplicate(err error) bool {
	var d *DuplicateRecordError
	return errors.As(err, &d)
}
