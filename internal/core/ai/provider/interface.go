package provider

import (
	"context"
	"time"
)

// Request 表示發送到生成模型的一次請求
type Request struct {
	Prompt      string  // 完整指令（含限制條款與輸出格式）
	ImageData   string  // data URI；僅圖片模式
	MaxTokens   int     // 最大輸出 token
	Temperature float64 // 取樣溫度
	JSONMode    bool    // 要求模型只輸出 JSON 物件
}

// Usage token 使用量
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示從生成模型收到的原始輸出
type Response struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

// Provider 定義生成模型介面
// 實作必須把上游錯誤轉為 common 包的預定義錯誤（憑證、額度、傳輸、逾時）；
// 輸出為空時回傳空 Content，不視為錯誤
type Provider interface {
	// Generate 送出一次請求並回傳原始文字
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GetModel 獲取當前使用的模型名稱
	GetModel() string

	// GetTimeout 獲取請求超時時間
	GetTimeout() time.Duration

	// Close 關閉提供者連接
	Close() error
}

// Transcriber 定義語音轉文字介面
type Transcriber interface {
	// Transcribe 回傳轉錄文字；失敗時回傳 common.ErrTranscriptionFailed
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Config 定義 AI 提供者配置
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}
