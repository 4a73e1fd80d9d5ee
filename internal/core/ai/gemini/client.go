package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"meal-intake/internal/core/ai/provider"
	"meal-intake/internal/pkg/common"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
)

// Client Google Gemini 生成客戶端
type Client struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	cfg     provider.Config
	timeout time.Duration
}

// NewClient 創建 Gemini 客戶端；模型固定輸出 JSON
func NewClient(ctx context.Context, cfg provider.Config) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"
	if cfg.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	}
	if cfg.Temperature > 0 {
		model.SetTemperature(float32(cfg.Temperature))
	}

	return &Client{client: client, model: model, cfg: cfg, timeout: cfg.Timeout}, nil
}

// GetModel 獲取模型名稱
func (c *Client) GetModel() string { return c.cfg.Model }

// GetTimeout 獲取請求超時時間
func (c *Client) GetTimeout() time.Duration { return c.timeout }

// Close 關閉底層客戶端
func (c *Client) Close() error {
	return c.client.Close()
}

// Generate 送出一次 GenerateContent 請求
func (c *Client) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.ImageData != "" {
		format, data, err := provider.SplitDataURI(req.ImageData)
		if err != nil {
			return nil, common.Wrap(common.ErrInvalidImageFormat, err)
		}
		parts = append(parts, genai.ImageData(format, data))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, classify(err)
	}

	out := &provider.Response{}
	if resp.UsageMetadata != nil {
		out.Usage = provider.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		common.LogWarn("Gemini returned no candidates", zap.String("model", c.cfg.Model))
		return out, nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out.Content = sb.String()
	return out, nil
}

// classify 將 Gemini API 錯誤轉為預定義錯誤
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.Wrap(common.ErrUpstreamTimeout, err)
	}

	apiErr, ok := apierror.FromError(err)
	if !ok {
		return provider.ClassifyTransport(err)
	}

	if status := apiErr.HTTPCode(); status > 0 {
		reason := apiErr.Reason()
		return provider.ClassifyHTTP(status, reason, reason, apiErr.Error())
	}

	switch apiErr.GRPCStatus().Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.Wrap(common.ErrInvalidCredential, err)
	case codes.ResourceExhausted:
		return common.Wrap(common.ErrQuotaExceeded, err)
	case codes.DeadlineExceeded:
		return common.Wrap(common.ErrUpstreamTimeout, err)
	case codes.Unavailable, codes.Internal, codes.Unknown:
		return common.Wrap(common.ErrUpstreamTransport, err)
	default:
		return provider.ClassifyHTTP(http.StatusBadRequest, "", "", err.Error())
	}
}
