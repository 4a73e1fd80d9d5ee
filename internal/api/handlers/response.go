package handlers

import (
	"context"
	"errors"
	"net/http"

	"meal-intake/internal/core/intake"
	"meal-intake/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AnalyzeResponse 分析端點的回應
// 失敗時 Result 只有 message，並附上 Error
type AnalyzeResponse struct {
	Result      *intake.AnalysisResult `json:"result"`
	Constraints *intake.Constraints    `json:"constraints,omitempty"`
	RequestID   string                 `json:"request_id"`
	Error       *common.ErrorResponse  `json:"error,omitempty"`
}

// HistoryResponse 歷史記錄回應
type HistoryResponse struct {
	SessionID string                `json:"session_id"`
	Entries   []intake.HistoryEntry `json:"entries"`
}

// bindJSON 嚴格解析請求體：未知欄位與多餘內容都視為無效請求
func bindJSON(c *gin.Context, v interface{}) error {
	return common.DecodeJSONStrict(c.Request.Body, v)
}

// classify 把 context 錯誤轉為請求逾時，其他錯誤維持原樣
func classify(err error) *common.CustomError {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return common.Wrap(common.ErrRequestTimeout, err)
	}
	return common.AsCustomError(err)
}

// writeError 只回傳錯誤（沒有分析結果的端點）
func writeError(c *gin.Context, err error, debug bool) {
	ce := classify(err)
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("請求失敗",
			zap.String("code", ce.Code),
			zap.Error(err),
			zap.String("request_id", requestid.Get(c)),
		)
	}
	resp := common.ToResponse(ce, debug)
	c.JSON(ce.Status, gin.H{
		"error":      resp,
		"request_id": requestid.Get(c),
	})
}
