package api

import (
	"context"
	"fmt"
	"time"

	"meal-intake/internal/api/handlers"
	"meal-intake/internal/api/handlers/health"
	"meal-intake/internal/api/middleware"
	"meal-intake/internal/core/intake"
	"meal-intake/internal/infrastructure/config"
	"meal-intake/internal/pkg/common"
	"meal-intake/internal/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的已初始化元件
type Dependencies struct {
	Pipeline *intake.Pipeline
	Metrics  *metrics.Metrics // 可為 nil
	Health   *health.Handler
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if deps.Health == nil {
		deps.Health = health.NewHandler(cfg.App.Version, cfg.Generation.Provider, "", nil)
	}

	timeout := requestTimeout(cfg)
	maxBody := maxBodySize(cfg)

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Duration("timeout", timeout),
		zap.Int64("max_body_size", maxBody),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Logger(deps.Metrics))

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.HeaderSessionID},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", middleware.HeaderSessionID},
		AllowCredentials: !allowsAnyOrigin(cfg.Server.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBody))

	// 請求超時：覆蓋一次轉錄加上兩次生成
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// 健康檢查路由
	router.GET("/health", deps.Health.HealthCheck)
	router.GET("/ready", deps.Health.ReadinessCheck)
	router.GET("/live", deps.Health.LivenessCheck)

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	// API 路由組
	api := router.Group("/api/v1")
	api.Use(middleware.Session())
	api.Use(middleware.Auth(cfg.Auth.JWTSecret))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst)))
	}
	api.Use(middleware.Deduplication(middleware.NewDeduplicator(cfg.DedupWindow)))

	h := handlers.NewIntakeHandler(deps.Pipeline, cfg.App.Debug)
	{
		analyzeGroup := api.Group("/analyze")
		analyzeGroup.POST("/text", h.AnalyzeText)
		analyzeGroup.POST("/image", h.AnalyzeImage)
		analyzeGroup.POST("/voice", h.AnalyzeVoice)

		historyGroup := api.Group("/history")
		historyGroup.GET("", h.ListHistory)
		historyGroup.DELETE("", h.ClearHistory)
		historyGroup.POST("/:index/replay", h.ReplayHistory)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("auth_enabled", cfg.Auth.JWTSecret != ""),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
	)

	return router, nil
}

// requestTimeout 一次轉錄加上兩次生成與退避，不超過伺服器寫入逾時
func requestTimeout(cfg *config.Config) time.Duration {
	d := cfg.Transcription.Timeout + 2*cfg.Generation.Timeout + cfg.Generation.RetryBackoff
	if w := cfg.Server.WriteTimeout; w > time.Second && d >= w {
		d = w - time.Second
	}
	if d <= 0 {
		d = 2 * time.Minute
	}
	return d
}

// maxBodySize base64 會放大約 4/3，另外保留表單欄位的空間
func maxBodySize(cfg *config.Config) int64 {
	return cfg.Image.MaxSizeBytes*4/3 + 1<<20
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
