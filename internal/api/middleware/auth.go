package middleware

import (
	"errors"
	"strings"
	"time"

	"meal-intake/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// context 鍵
const (
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
)

// Auth 解析可選的 Bearer token
//   - 沒有 token：匿名（不套用任何飲食限制）
//   - token 無效：401
//   - secret 為空：不驗證，所有請求視為匿名
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
	)

	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abortWithError(c, common.Wrap(common.ErrUnauthorized, errors.New("malformed authorization header")))
			return
		}

		var claims jwt.RegisteredClaims
		if _, err := parser.ParseWithClaims(strings.TrimSpace(raw), &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}); err != nil {
			common.LogWarn("無效的 token",
				zap.String("ip", c.ClientIP()),
				zap.Error(err),
			)
			abortWithError(c, common.Wrap(common.ErrUnauthorized, err))
			return
		}
		if claims.Subject == "" {
			abortWithError(c, common.Wrap(common.ErrUnauthorized, errors.New("token without subject")))
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Next()
	}
}

// UserID 目前請求的使用者，匿名時為空字串
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
