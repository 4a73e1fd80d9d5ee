package intake

import (
	"context"
	"time"

	"meal-intake/internal/core/ai/provider"
	"meal-intake/internal/pkg/common"
	"meal-intake/internal/pkg/metrics"

	"go.uber.org/zap"
)

// 每次請求最多呼叫上游兩次（首次 + 一次重試）
const maxAttempts = 2

// Options 管線設定
type Options struct {
	ProviderName string        // 指標標籤
	MaxTokens    int           // 最大輸出 token
	Temperature  float64       // 取樣溫度
	RetryBackoff time.Duration // 暫時性錯誤重試前的等待
	StrictRetry  bool          // 格式錯誤時是否以更嚴格的指令重試一次
}

// Submission 一次使用者提交
type Submission struct {
	UserID    string // 空字串表示匿名
	SessionID string
	Input     RawInput
}

// Outcome 管線輸出
type Outcome struct {
	Result      *AnalysisResult
	Constraints *Constraints // 正規化失敗時為 nil
	Entry       HistoryEntry // 成功時應寫入歷史的記錄
	Attempts    int
}

// Pipeline 正規化 → 限制 → 生成 → 安全標註
type Pipeline struct {
	normalizer  *Normalizer
	constraints *ConstraintProvider
	generator   provider.Provider
	annotator   *SafetyAnnotator
	history     *History
	metrics     *metrics.Metrics
	opts        Options
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewPipeline 創建管線；metrics 可為 nil
func NewPipeline(
	normalizer *Normalizer,
	constraints *ConstraintProvider,
	generator provider.Provider,
	history *History,
	m *metrics.Metrics,
	opts Options,
) *Pipeline {
	return &Pipeline{
		normalizer:  normalizer,
		constraints: constraints,
		generator:   generator,
		annotator:   NewSafetyAnnotator(),
		history:     history,
		metrics:     m,
		opts:        opts,
		sleep:       sleepContext,
	}
}

// Analyze 執行一次完整分析
// 失敗時仍回傳只有 message 的結果與錯誤，呼叫端不需要處理 nil Result
func (p *Pipeline) Analyze(ctx context.Context, sub Submission) (*Outcome, error) {
	start := time.Now()
	modality := sub.Input.Modality
	out := &Outcome{}

	fail := func(err error) (*Outcome, error) {
		ce := common.AsCustomError(err)
		out.Result = MessageOnly(modality, ce.Message)
		p.metrics.ObserveRequest(string(modality), ce.Code)
		common.LogWarn("分析失敗",
			zap.String("modality", string(modality)),
			zap.String("code", ce.Code),
			zap.Error(err),
			zap.Int("attempts", out.Attempts),
			zap.Duration("耗時", time.Since(start)),
			zap.String("request_id", common.RequestIDFrom(ctx)),
		)
		return out, err
	}

	req, err := p.normalizer.Normalize(ctx, sub.Input)
	if err != nil {
		return fail(err)
	}

	constraints := p.constraints.Resolve(ctx, sub.UserID)
	out.Constraints = &constraints
	req.Restrictions = constraints.Terms

	result, attempts, err := p.generate(ctx, req)
	out.Attempts = attempts
	if err != nil {
		return fail(err)
	}

	annotated, note := p.annotator.Annotate(result, req.Restrictions)
	p.metrics.AddWarnings(note.Warnings)

	out.Result = annotated
	out.Entry = HistoryEntry{Query: req.PromptText, Type: req.Modality, Timestamp: time.Now()}
	if req.Modality == ModalityImage {
		out.Entry.Query = ImagePlaceholderQuery
	}

	p.metrics.ObserveRequest(string(modality), "ok")
	common.LogInfo("分析完成",
		zap.String("modality", string(modality)),
		zap.String("type", string(annotated.Type)),
		zap.String("constraints", string(constraints.Status)),
		zap.Int("restrictions", len(req.Restrictions)),
		zap.Int("flagged", note.Flagged),
		zap.Int("attempts", attempts),
		zap.Duration("耗時", time.Since(start)),
		zap.String("request_id", common.RequestIDFrom(ctx)),
	)
	return out, nil
}

// Remember 寫入歷史；呼叫端必須先確認請求仍然有效
func (p *Pipeline) Remember(ctx context.Context, sessionID string, entry HistoryEntry) error {
	if p.history == nil || sessionID == "" || entry.Query == "" {
		return nil
	}
	if _, err := p.history.Record(ctx, sessionID, entry); err != nil {
		return err
	}
	p.metrics.IncHistory()
	return nil
}

// Replay 以歷史記錄的查詢重新執行；圖片記錄不可重播
func (p *Pipeline) Replay(ctx context.Context, sub Submission, index int) (*Outcome, error) {
	if p.history == nil {
		return nil, common.ErrServiceUnavailable
	}
	entry, err := p.history.Entry(ctx, sub.SessionID, index)
	if err != nil {
		return nil, err
	}
	if !entry.Replayable() {
		return nil, common.ErrNotReplayable
	}
	sub.Input = RawInput{Modality: ModalityText, Text: entry.Query}
	return p.Analyze(ctx, sub)
}

// History 回傳歷史記錄元件
func (p *Pipeline) History() *History {
	return p.history
}

// generate 呼叫上游並解析，依錯誤類型最多重試一次
func (p *Pipeline) generate(ctx context.Context, req *NormalizedRequest) (*AnalysisResult, int, error) {
	strict := false
	kind := "first"

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := p.attempt(ctx, req, strict, kind)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == maxAttempts {
			break
		}

		switch {
		case common.Retriable(err):
			kind = "retry"
			if sleepErr := p.sleep(ctx, p.opts.RetryBackoff); sleepErr != nil {
				return nil, attempt, lastErr
			}
		case common.StrictRetriable(err) && p.opts.StrictRetry:
			kind = "strict"
			strict = true
		default:
			// 憑證與額度錯誤重試也無法改善
			return nil, attempt, err
		}

		common.LogWarn("生成失敗，重試一次",
			zap.String("code", common.ErrorCode(err)),
			zap.String("kind", kind),
			zap.String("request_id", common.RequestIDFrom(ctx)),
		)
	}
	return nil, maxAttempts, lastErr
}

// attempt 單次上游呼叫
func (p *Pipeline) attempt(ctx context.Context, req *NormalizedRequest, strict bool, kind string) (*AnalysisResult, error) {
	if timeout := p.generator.GetTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.generator.Generate(ctx, &provider.Request{
		Prompt:      BuildPrompt(req, strict),
		ImageData:   req.ImagePayload,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
		JSONMode:    true,
	})
	elapsed := time.Since(start)
	p.metrics.ObserveGeneration(p.opts.ProviderName, kind, elapsed)

	if err != nil {
		err = provider.ClassifyTransport(err)
		common.LogGeneration(p.generator.GetModel(), elapsed, err, common.RequestIDFrom(ctx))
		return nil, err
	}

	result, err := ParseResult(resp.Content, req.Modality)
	common.LogGeneration(p.generator.GetModel(), elapsed, err, common.RequestIDFrom(ctx))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
