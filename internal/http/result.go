package httpapi

// Result 统一响应信封
// - success: 请求是否成功
// - message: 错误消息（成功时为 "ok"）
// - data: 载荷
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Message: "ok", Data: data}
}

func Fail(message string) Result[any] {
	return Result[any]{Success: false, Message: message, Data: nil}
}
