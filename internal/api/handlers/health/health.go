package health

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"meal-intake/internal/core/ai/queue"
	"meal-intake/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 就緒檢查的單一依賴逾時
const checkTimeout = 2 * time.Second

// Pinger 可檢查連線的依賴（profile 與 history 儲存）
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Provider  string                 `json:"provider"`
	Model     string                 `json:"model"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
}

// ReadinessResponse 就緒檢查響應
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler 健康檢查處理器
type Handler struct {
	version  string
	provider string
	model    string
	deps     map[string]Pinger
	queue    *queue.Manager
}

// NewHandler 創建健康檢查處理器
func NewHandler(version, provider, model string, deps map[string]Pinger) *Handler {
	if deps == nil {
		deps = map[string]Pinger{}
	}
	return &Handler{version: version, provider: provider, model: model, deps: deps}
}

// WithQueue 在健康檢查中回報生成隊列狀態
func (h *Handler) WithQueue(q *queue.Manager) *Handler {
	h.queue = q
	return h
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.version,
		Provider:  h.provider,
		Model:     h.model,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.queue != nil {
		resp.Queue = h.queue.GetQueueStatus()
	}

	c.JSON(http.StatusOK, resp)
}

// ReadinessCheck 就緒檢查：逐一 ping 儲存依賴
func (h *Handler) ReadinessCheck(c *gin.Context) {
	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK

	for _, name := range names {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		err := h.deps[name].Ping(ctx)
		cancel()

		if err != nil {
			common.LogWarn("依賴未就緒",
				zap.String("dependency", name),
				zap.Error(err),
			)
			resp.Checks[name] = "unavailable"
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	c.JSON(status, resp)
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
