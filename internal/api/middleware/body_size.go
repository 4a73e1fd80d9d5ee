package middleware

import (
	"fmt"
	"net/http"

	"meal-intake/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BodySizeLimit 限制請求體大小的中間件
func BodySizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 檢查 Content-Length
		if c.Request.ContentLength > maxSize {
			common.LogWarn("Request body too large",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("max_size", maxSize),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			abortWithError(c, common.NewError(
				common.ErrCodeInvalidRequest,
				fmt.Sprintf("O pedido excede o tamanho máximo de %d MB.", maxSize>>20),
				http.StatusRequestEntityTooLarge,
				nil,
			))
			return
		}

		// 設置請求體大小限制（chunked 請求沒有 Content-Length）
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)

		c.Next()
	}
}
