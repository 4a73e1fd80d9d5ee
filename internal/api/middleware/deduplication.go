package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"meal-intake/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 擋下同一身份在短時間內重複送出的相同請求（例如連點送出）
type Deduplicator struct {
	mu       sync.Mutex
	requests map[string]time.Time
	window   time.Duration
	now      func() time.Time
	lastGC   time.Time
}

// NewDeduplicator 創建去重器；window <= 0 時使用 1 秒
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	return &Deduplicator{
		requests: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}
}

// seen 記錄指紋並回傳是否為視窗內的重複請求
func (d *Deduplicator) seen(fingerprint string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if now.Sub(d.lastGC) > 10*d.window {
		for k, t := range d.requests {
			if now.Sub(t) > d.window {
				delete(d.requests, k)
			}
		}
		d.lastGC = now
	}

	if last, ok := d.requests[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.requests[fingerprint] = now
	return false
}

// Deduplication 請求去重中間件；需在 Session 與 Auth 之後
func Deduplication(d *Deduplicator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		// 計算請求體哈希
		h := sha256.New()
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogWarn("Failed to read request body", zap.Error(err))
				abortWithError(c, common.Wrap(common.ErrInvalidRequest, err))
				return
			}
			h.Write(body)

			// 恢復請求體
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		// 生成請求指紋：身份 + 路徑 + 內容
		fingerprint := UserID(c) + "|" + SessionID(c) + "|" + c.Request.URL.Path + "|" + hex.EncodeToString(h.Sum(nil))

		if d.seen(fingerprint) {
			common.LogInfo("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("session_id", SessionID(c)),
			)
			abortWithError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
