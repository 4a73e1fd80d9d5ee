package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"meal-intake/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 閒置超過此時間的客戶端限流器會被清除
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 以客戶端 IP 為單位的令牌桶
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	requests int
	window   time.Duration
	now      func() time.Time
}

// NewRateLimiter 創建新的限流器：每個 window 允許 requests 次，瞬間最多 burst 次
func NewRateLimiter(requests int, window time.Duration, burst int) *RateLimiter {
	if burst <= 0 {
		burst = requests
	}
	return &RateLimiter{
		clients:  make(map[string]*clientLimiter),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    burst,
		requests: requests,
		window:   window,
		now:      time.Now,
	}
}

// Allow 檢查是否允許請求
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cl, ok := rl.clients[key]
	if !ok {
		rl.sweep(now)
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: now}
		rl.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// sweep 清除閒置的客戶端；呼叫端需持有鎖
func (rl *RateLimiter) sweep(now time.Time) {
	for k, cl := range rl.clients {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(rl.clients, k)
		}
	}
}

// retryAfter 下一個令牌的等待秒數
func (rl *RateLimiter) retryAfter() int {
	if rl.requests <= 0 {
		return int(rl.window.Seconds())
	}
	return int(math.Ceil(rl.window.Seconds() / float64(rl.requests)))
}

// RateLimit 限流中間件
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			common.LogInfo("Rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)

			c.Header("Retry-After", strconv.Itoa(rl.retryAfter()))
			abortWithError(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
