package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 支援的生成供應商
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config 應用配置
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Gemini        GeminiConfig        `mapstructure:"gemini"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Profile       ProfileConfig       `mapstructure:"profile"`
	History       HistoryConfig       `mapstructure:"history"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Image         ImageConfig         `mapstructure:"image"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
	DedupWindow   time.Duration       `mapstructure:"dedup_window"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFile       string              `mapstructure:"log_file"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// GenerationConfig 生成模型設定
type GenerationConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Temperature  float64       `mapstructure:"temperature"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	StrictRetry  bool          `mapstructure:"strict_retry"`
}

// GeminiConfig Gemini 設定（provider=gemini 時使用）
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// TranscriptionConfig 語音轉文字設定
type TranscriptionConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ProfileConfig 使用者飲食限制儲存設定
type ProfileConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// HistoryConfig 搜尋歷史設定
type HistoryConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// RedisConfig Redis 連線設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 身份驗證設定；JWTSecret 為空時不驗證 token
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

// ImageConfig 圖片配置
type ImageConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxDimension int   `mapstructure:"max_dimension"`
	JPEGQuality  int   `mapstructure:"jpeg_quality"`
}

// QueueConfig 上游生成的併發控制
type QueueConfig struct {
	Workers int `mapstructure:"workers"`  // 同時進行的生成呼叫數
	MaxSize int `mapstructure:"max_size"` // 等待中的請求上限
}

// MetricsConfig Prometheus 指標設定
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig 載入設定：.env（可選）→ 環境變量 → 預設值
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Load(viper.New())
}

// Load 以指定的 viper 實例解析設定
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// 設定環境變數前綴
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定常用的非前綴環境變量
	bindings := map[string]string{
		"generation.api_key":    "OPENAI_API_KEY",
		"generation.provider":   "GENERATION_PROVIDER",
		"generation.model":      "GENERATION_MODEL",
		"generation.base_url":   "GENERATION_BASE_URL",
		"generation.max_tokens": "MODEL_MAX_TOKENS",
		"gemini.api_key":        "GEMINI_API_KEY",
		"transcription.api_key": "OPENAI_API_KEY",
		"auth.jwt_secret":       "JWT_SECRET",
		"redis.addr":            "REDIS_ADDR",
		"redis.password":        "REDIS_PASSWORD",
		"profile.dsn":           "PROFILE_DSN",
		"rate_limit.enabled":    "RATE_LIMIT_ENABLED",
		"rate_limit.requests":   "RATE_LIMIT_REQUESTS",
		"rate_limit.window":     "RATE_LIMIT_WINDOW",
		"dedup_window":          "DEDUP_WINDOW",
		"log_level":             "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 轉錄預設沿用生成端點
	if config.Transcription.APIKey == "" {
		config.Transcription.APIKey = config.Generation.APIKey
	}
	if config.Transcription.BaseURL == "" {
		config.Transcription.BaseURL = config.Generation.BaseURL
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "meal-intake")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// 生成設定
	v.SetDefault("generation.provider", ProviderOpenAI)
	v.SetDefault("generation.base_url", "https://api.openai.com/v1")
	v.SetDefault("generation.model", "gpt-4o")
	v.SetDefault("generation.max_tokens", 2000)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.timeout", "60s")
	v.SetDefault("generation.retry_backoff", "500ms")
	v.SetDefault("generation.strict_retry", true)

	// Gemini 設定
	v.SetDefault("gemini.model", "gemini-1.5-flash")

	// 轉錄設定
	v.SetDefault("transcription.model", "whisper-1")
	v.SetDefault("transcription.language", "pt")
	v.SetDefault("transcription.timeout", "30s")

	// 飲食限制儲存
	v.SetDefault("profile.driver", "memory")
	v.SetDefault("profile.dsn", "data/profiles.db")

	// 歷史設定
	v.SetDefault("history.backend", "memory")
	v.SetDefault("history.ttl", "720h")

	// Redis 設定
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.burst", 10)

	// 圖片設定
	v.SetDefault("image.max_size_bytes", 10*1024*1024) // 10MB
	v.SetDefault("image.max_dimension", 1024)
	v.SetDefault("image.jpeg_quality", 85)

	// 隊列設定
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.max_size", 32)

	// 指標設定
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/app.log")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if len(config.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin is required")
	}

	// 驗證生成設定
	switch config.Generation.Provider {
	case ProviderOpenAI:
		if config.Generation.APIKey == "" {
			return fmt.Errorf("generation api key is required")
		}
	case ProviderGemini:
		if config.Gemini.APIKey == "" {
			return fmt.Errorf("gemini api key is required")
		}
	default:
		return fmt.Errorf("unknown generation provider: %q", config.Generation.Provider)
	}
	if config.Generation.MaxTokens <= 0 {
		return fmt.Errorf("invalid generation max tokens")
	}
	if config.Generation.Timeout <= 0 {
		return fmt.Errorf("invalid generation timeout")
	}

	// 驗證儲存設定
	switch config.Profile.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown profile driver: %q", config.Profile.Driver)
	}
	switch config.History.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown history backend: %q", config.History.Backend)
	}

	// 驗證限流設定
	if config.RateLimit.Enabled {
		if config.RateLimit.Requests <= 0 || config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit settings")
		}
	}

	// 驗證隊列設定
	if config.Queue.Workers <= 0 {
		return fmt.Errorf("invalid queue workers")
	}
	if config.Queue.MaxSize < 0 {
		return fmt.Errorf("invalid queue max size")
	}

	// 驗證圖片設定
	if config.Image.MaxSizeBytes <= 0 {
		return fmt.Errorf("invalid image max size")
	}
	if config.Image.MaxDimension <= 0 {
		return fmt.Errorf("invalid image max dimension")
	}
	if config.Image.JPEGQuality < 1 || config.Image.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality")
	}

	return nil
}
