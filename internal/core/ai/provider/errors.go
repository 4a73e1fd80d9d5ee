package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"meal-intake/internal/pkg/common"
)

// ClassifyHTTP 將上游 HTTP 狀態與錯誤代碼歸類為預定義錯誤
// code/errType 為上游回傳的錯誤欄位（可為空）
func ClassifyHTTP(status int, code, errType, message string) error {
	cause := fmt.Errorf("upstream status %d: %s", status, message)
	lc := strings.ToLower(code + " " + errType)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		strings.Contains(lc, "invalid_api_key") || strings.Contains(lc, "api_key_invalid"):
		return common.Wrap(common.ErrInvalidCredential, cause)
	case strings.Contains(lc, "insufficient_quota") || strings.Contains(lc, "billing"):
		return common.Wrap(common.ErrQuotaExceeded, cause)
	case status == http.StatusTooManyRequests:
		return common.Wrap(common.ErrUpstreamTransport, cause)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return common.Wrap(common.ErrUpstreamTimeout, cause)
	case status >= 500:
		return common.Wrap(common.ErrUpstreamTransport, cause)
	default:
		// 其他 4xx 屬於請求本身的問題，重試無意義
		return common.Wrap(common.ErrUpstreamRejected, cause)
	}
}

// ClassifyTransport 將網路層錯誤歸類為逾時或傳輸錯誤
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.Wrap(common.ErrUpstreamTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return common.Wrap(common.ErrUpstreamTimeout, err)
	}
	return common.Wrap(common.ErrUpstreamTransport, err)
}
