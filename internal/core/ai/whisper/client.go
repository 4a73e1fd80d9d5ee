package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"meal-intake/internal/pkg/common"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// Config 轉錄客戶端設定
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string // 固定語言提示，與產品語系一致
	Timeout  time.Duration
}

// Client 語音轉文字客戶端
type Client struct {
	client openai.Client
	cfg    Config
}

// NewClient 創建轉錄客戶端；逾時與 5xx 由 SDK 重試一次
func NewClient(cfg Config) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Client{client: openai.NewClient(opts...), cfg: cfg}
}

// Transcribe 將音訊轉為文字；任何失敗或空結果都回傳 ErrTranscriptionFailed
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", common.Wrap(common.ErrTranscriptionFailed, errors.New("empty audio payload"))
	}
	if filename == "" {
		filename = "audio.webm"
	}

	start := time.Now()
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:     openai.File(bytes.NewReader(audio), filename, contentType(filename)),
		Model:    openai.AudioModel(c.cfg.Model),
		Language: openai.String(c.cfg.Language),
	})
	requestID := common.RequestIDFrom(ctx)
	if err != nil {
		err = common.Wrap(common.ErrTranscriptionFailed, describe(err))
		common.LogGeneration(c.cfg.Model, time.Since(start), err, requestID)
		return "", err
	}
	common.LogGeneration(c.cfg.Model, time.Since(start), nil, requestID)

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", common.Wrap(common.ErrTranscriptionFailed, errors.New("empty transcript"))
	}
	common.LogDebug("Transcription completed", zap.Int("chars", len(text)))
	return text, nil
}

// describe 為日誌整理上游錯誤，不包含音訊內容
func describe(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("transcription upstream status %d (%s): %s", apiErr.StatusCode, apiErr.Code, apiErr.Message)
	}
	return err
}

func contentType(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "audio/webm"
}
