package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"meal-intake/internal/api/middleware"
	"meal-intake/internal/core/intake"
	"meal-intake/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListHistory GET /history
func (h *IntakeHandler) ListHistory(c *gin.Context) {
	session := middleware.SessionID(c)
	entries, err := h.pipeline.History().List(c.Request.Context(), session)
	if err != nil {
		writeError(c, common.Wrap(common.ErrServiceUnavailable, err), h.debug)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{SessionID: session, Entries: entries})
}

// ClearHistory DELETE /history
func (h *IntakeHandler) ClearHistory(c *gin.Context) {
	if err := h.pipeline.History().Clear(c.Request.Context(), middleware.SessionID(c)); err != nil {
		writeError(c, common.Wrap(common.ErrServiceUnavailable, err), h.debug)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReplayHistory POST /history/:index/replay
// 以文字模式重新執行歷史查詢，圖片記錄不可重播
func (h *IntakeHandler) ReplayHistory(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		writeError(c, common.Wrap(common.ErrInvalidRequest, fmt.Errorf("invalid history index %q", c.Param("index"))), h.debug)
		return
	}

	ctx := c.Request.Context()
	sub := intake.Submission{
		UserID:    middleware.UserID(c),
		SessionID: middleware.SessionID(c),
	}

	out, err := h.pipeline.Replay(ctx, sub, index)
	if out == nil {
		// 找不到記錄或不可重播，管線沒有執行
		writeError(c, err, h.debug)
		return
	}

	if err == nil && ctx.Err() == nil {
		if rerr := h.pipeline.Remember(ctx, sub.SessionID, out.Entry); rerr != nil {
			common.LogWarn("寫入歷史失敗",
				zap.String("session_id", sub.SessionID),
				zap.Error(rerr),
			)
		}
	}
	h.respond(c, intake.ModalityText, out, err)
}
