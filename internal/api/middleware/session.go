package middleware

import (
	"meal-intake/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// HeaderSessionID 歷史記錄使用的 session 標頭
const HeaderSessionID = "X-Session-ID"

// Session 讀取 X-Session-ID；缺少或格式錯誤時產生新的並回傳給客戶端
// 同時把 request id 放進 request context 供下游日誌使用
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderSessionID)
		if !common.IsUUID(id) {
			id = common.GenerateUUID()
		}
		c.Set(ContextSessionID, id)
		c.Header(HeaderSessionID, id)

		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), requestid.Get(c)))
		c.Next()
	}
}

// SessionID 目前請求的 session
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
