package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"meal-intake/internal/api/middleware"
	"meal-intake/internal/core/intake"
	"meal-intake/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TextRequest 文字分析請求
type TextRequest struct {
	Query string `json:"query"`
}

// ImageRequest 圖片分析請求（data URI 或 base64）
type ImageRequest struct {
	Image string `json:"image"`
}

// IntakeHandler 分析與歷史記錄處理器
type IntakeHandler struct {
	pipeline *intake.Pipeline
	debug    bool
}

// NewIntakeHandler 創建處理器；debug 時錯誤回應附上內部原因
func NewIntakeHandler(pipeline *intake.Pipeline, debug bool) *IntakeHandler {
	return &IntakeHandler{pipeline: pipeline, debug: debug}
}

// AnalyzeText POST /analyze/text
func (h *IntakeHandler) AnalyzeText(c *gin.Context) {
	var req TextRequest
	if err := bindJSON(c, &req); err != nil {
		h.respond(c, intake.ModalityText, nil, common.Wrap(common.ErrInvalidRequest, err))
		return
	}
	h.analyze(c, intake.RawInput{Modality: intake.ModalityText, Text: req.Query})
}

// AnalyzeImage POST /analyze/image，支援 JSON 與 multipart（欄位 file）
func (h *IntakeHandler) AnalyzeImage(c *gin.Context) {
	in := intake.RawInput{Modality: intake.ModalityImage}

	if isMultipart(c) {
		data, _, err := readFormFile(c, "file")
		if err != nil {
			h.respond(c, in.Modality, nil, err)
			return
		}
		in.Image = data
	} else {
		var req ImageRequest
		if err := bindJSON(c, &req); err != nil {
			h.respond(c, in.Modality, nil, common.Wrap(common.ErrInvalidRequest, err))
			return
		}
		in.ImageData = req.Image
	}

	common.LogDebug("收到圖片分析請求",
		zap.Int("image_bytes", len(in.Image)+len(in.ImageData)),
		zap.String("request_id", requestid.Get(c)),
	)
	h.analyze(c, in)
}

// AnalyzeVoice POST /analyze/voice，multipart 欄位 file
func (h *IntakeHandler) AnalyzeVoice(c *gin.Context) {
	if !isMultipart(c) {
		h.respond(c, intake.ModalityVoice, nil, common.Wrap(common.ErrInvalidRequest, fmt.Errorf("expected multipart/form-data")))
		return
	}
	data, name, err := readFormFile(c, "file")
	if err != nil {
		h.respond(c, intake.ModalityVoice, nil, err)
		return
	}
	h.analyze(c, intake.RawInput{Modality: intake.ModalityVoice, Audio: data, AudioName: name})
}

// analyze 執行管線；成功且請求仍有效時才寫入歷史
func (h *IntakeHandler) analyze(c *gin.Context, in intake.RawInput) {
	ctx := c.Request.Context()
	sub := intake.Submission{
		UserID:    middleware.UserID(c),
		SessionID: middleware.SessionID(c),
		Input:     in,
	}

	out, err := h.pipeline.Analyze(ctx, sub)
	if err == nil && ctx.Err() == nil {
		if rerr := h.pipeline.Remember(ctx, sub.SessionID, out.Entry); rerr != nil {
			common.LogWarn("寫入歷史失敗",
				zap.String("session_id", sub.SessionID),
				zap.Error(rerr),
			)
		}
	}
	h.respond(c, in.Modality, out, err)
}

// respond 寫出統一格式的回應
func (h *IntakeHandler) respond(c *gin.Context, modality intake.Modality, out *intake.Outcome, err error) {
	resp := AnalyzeResponse{RequestID: requestid.Get(c)}
	if out != nil {
		resp.Result = out.Result
		resp.Constraints = out.Constraints
	}

	if err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	ce := classify(err)
	if resp.Result == nil || ce.Code != common.ErrorCode(err) {
		resp.Result = intake.MessageOnly(modality, ce.Message)
	}
	e := common.ToResponse(ce, h.debug)
	resp.Error = &e
	c.JSON(ce.Status, resp)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// readFormFile 讀取上傳檔案；沒有檔案時回傳 ErrEmptyInput
func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, "", common.ErrEmptyInput
		}
		return nil, "", common.Wrap(common.ErrInvalidRequest, err)
	}
	data, err := readUpload(fh)
	if err != nil {
		return nil, "", common.Wrap(common.ErrInvalidRequest, err)
	}
	return data, fh.Filename, nil
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}
