package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meal-intake/internal/api"
	"meal-intake/internal/api/handlers/health"
	"meal-intake/internal/core/ai/gemini"
	"meal-intake/internal/core/ai/image"
	"meal-intake/internal/core/ai/openaicompat"
	"meal-intake/internal/core/ai/provider"
	"meal-intake/internal/core/ai/queue"
	"meal-intake/internal/core/ai/whisper"
	"meal-intake/internal/core/intake"
	"meal-intake/internal/core/profile"
	"meal-intake/internal/core/store"
	"meal-intake/internal/infrastructure/config"
	"meal-intake/internal/pkg/common"
	"meal-intake/internal/pkg/metrics"

	"go.uber.org/zap"
)

// 限制查詢的逾時；超過時視為沒有限制
const constraintTimeout = 2 * time.Second

// historyBackend 歷史儲存加上連線管理
type historyBackend interface {
	intake.HistoryStorage
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	// 載入設定（.env 可選）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("provider", cfg.Generation.Provider),
		zap.String("model", generationModel(cfg)),
		zap.String("api_key", common.MaskSecret(generationKey(cfg))),
		zap.String("transcription_model", cfg.Transcription.Model),
		zap.String("profile_driver", cfg.Profile.Driver),
		zap.String("history_backend", cfg.History.Backend),
	)

	ctx := context.Background()

	// 生成服務，經由隊列限制併發
	base, err := newGenerator(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize generation provider", zap.Error(err))
	}
	queueManager := queue.NewManager(cfg.Queue.Workers, cfg.Queue.MaxSize)
	generator := queue.Wrap(base, queueManager)
	defer generator.Close()

	// 語音轉文字
	transcriber := whisper.NewClient(whisper.Config{
		APIKey:   cfg.Transcription.APIKey,
		BaseURL:  cfg.Transcription.BaseURL,
		Model:    cfg.Transcription.Model,
		Language: cfg.Transcription.Language,
		Timeout:  cfg.Transcription.Timeout,
	})

	// 飲食限制儲存
	profiles, err := newProfileStore(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize profile store", zap.Error(err))
	}
	defer profiles.Close()

	// 歷史儲存
	history, err := newHistoryStore(ctx, cfg)
	if err != nil {
		common.LogFatal("Failed to initialize history store", zap.Error(err))
	}
	defer history.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	pipeline := intake.NewPipeline(
		intake.NewNormalizer(
			image.NewProcessor(cfg.Image.MaxSizeBytes, cfg.Image.MaxDimension, cfg.Image.JPEGQuality),
			transcriber,
		),
		intake.NewConstraintProvider(profiles, constraintTimeout),
		generator,
		intake.NewHistory(history, intake.HistoryLimit),
		m,
		intake.Options{
			ProviderName: cfg.Generation.Provider,
			MaxTokens:    cfg.Generation.MaxTokens,
			Temperature:  cfg.Generation.Temperature,
			RetryBackoff: cfg.Generation.RetryBackoff,
			StrictRetry:  cfg.Generation.StrictRetry,
		},
	)

	deps := map[string]health.Pinger{"history": history}
	if p, ok := profiles.(health.Pinger); ok {
		deps["profile"] = p
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Pipeline: pipeline,
		Metrics:  m,
		Health:   health.NewHandler(cfg.App.Version, cfg.Generation.Provider, generator.GetModel(), deps).WithQueue(queueManager),
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

// newGenerator 依設定建立生成服務
func newGenerator(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Generation.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(ctx, provider.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			Timeout:     cfg.Generation.Timeout,
		})
	default:
		return openaicompat.NewClient(provider.Config{
			APIKey:      cfg.Generation.APIKey,
			BaseURL:     cfg.Generation.BaseURL,
			Model:       cfg.Generation.Model,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			Timeout:     cfg.Generation.Timeout,
		}), nil
	}
}

func newProfileStore(cfg *config.Config) (profile.Store, error) {
	if cfg.Profile.Driver == "sqlite" {
		return profile.NewSQLStore(cfg.Profile.DSN)
	}
	common.LogWarn("使用記憶體飲食限制儲存，重新啟動後資料會遺失")
	return profile.NewMemoryStore(), nil
}

func newHistoryStore(ctx context.Context, cfg *config.Config) (historyBackend, error) {
	if cfg.History.Backend == "redis" {
		return store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.History.TTL,
		})
	}
	return store.NewMemoryStore(cfg.History.TTL, 10000, 10*time.Minute), nil
}

func generationModel(cfg *config.Config) string {
	if cfg.Generation.Provider == config.ProviderGemini {
		return cfg.Gemini.Model
	}
	return cfg.Generation.Model
}

func generationKey(cfg *config.Config) string {
	if cfg.Generation.Provider == config.ProviderGemini {
		return cfg.Gemini.APIKey
	}
	return cfg.Generation.APIKey
}
