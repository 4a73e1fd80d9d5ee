package common

import "context"

type ctxKey string

const requestIDKey ctxKey = "request_id"

// WithRequestID 將請求 ID 放入 context，供下游日誌使用
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFrom 取出請求 ID；不存在時回傳空字串
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
