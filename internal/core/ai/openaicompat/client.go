package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"meal-intake/internal/core/ai/provider"
	"meal-intake/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client OpenAI 相容的 chat completions 客戶端
type Client struct {
	client *resty.Client
	cfg    provider.Config
}

// contentPart 多模態內容片段
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatRequest 表示 API 請求
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatResponse 響應結構
type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
}

// apiError 表示 API 錯誤
type apiError struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// NewClient 創建新的客戶端
func NewClient(cfg provider.Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{client: client, cfg: cfg}
}

// GetModel 獲取模型名稱
func (c *Client) GetModel() string { return c.cfg.Model }

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration { return c.cfg.Timeout }

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

// Generate 送出一次 chat completion 請求
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	parts := []contentPart{{Type: "text", Text: req.Prompt}}
	if req.ImageData != "" {
		url := req.ImageData
		if !strings.HasPrefix(url, "data:image/") {
			url = "data:image/jpeg;base64," + url
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: url}})
	}

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []message{{Role: "user", Content: parts}},
		MaxTokens:   firstPositive(req.MaxTokens, c.cfg.MaxTokens),
		Temperature: req.Temperature,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	common.LogDebug("Sending chat completion",
		zap.String("model", body.Model),
		zap.Bool("has_image", req.ImageData != ""),
		zap.Int("max_tokens", body.MaxTokens),
	)

	var result chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return nil, provider.ClassifyTransport(err)
	}

	if resp.IsError() {
		var apiErr apiError
		_ = json.Unmarshal(resp.Body(), &apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = sanitizeResponse(resp.Body())
		}
		return nil, provider.ClassifyHTTP(resp.StatusCode(), fmt.Sprint(apiErr.Error.Code), apiErr.Error.Type, msg)
	}

	if len(result.Choices) == 0 {
		common.LogWarn("Empty choices in chat completion",
			zap.String("model", body.Model),
			zap.String("response", sanitizeResponse(resp.Body())),
		)
		return &provider.Response{Usage: result.Usage}, nil
	}

	return &provider.Response{
		Content: result.Choices[0].Message.Content,
		Usage:   result.Usage,
	}, nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// sanitizeResponse 清理響應內容，移除圖片數據並截斷
func sanitizeResponse(body []byte) string {
	s := string(body)
	if strings.Contains(s, "data:image/") {
		return "[IMAGE_DATA_REMOVED]"
	}
	if len(s) > 100 && strings.Contains(s, "base64") {
		return "[BASE64_DATA_REMOVED]"
	}
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
