package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"meal-intake/internal/pkg/common"
)

// HistoryLimit 每個 session 保留的最近查詢數
const HistoryLimit = 5

// HistoryStorage 歷史記錄的儲存介面（記憶體、Redis）
type HistoryStorage interface {
	Load(ctx context.Context, sessionID string) ([]HistoryEntry, error)
	Save(ctx context.Context, sessionID string, entries []HistoryEntry) error
	Delete(ctx context.Context, sessionID string) error
}

// History 有界的最近查詢列表，最新的在前；相同查詢不去重
type History struct {
	storage HistoryStorage
	limit   int
	mu      sync.Mutex
	now     func() time.Time
}

// NewHistory 創建歷史記錄；limit <= 0 時使用 HistoryLimit
func NewHistory(storage HistoryStorage, limit int) *History {
	if limit <= 0 {
		limit = HistoryLimit
	}
	return &History{storage: storage, limit: limit, now: time.Now}
}

// Record 在最前面加入一筆記錄並截斷
func (h *History) Record(ctx context.Context, sessionID string, entry HistoryEntry) ([]HistoryEntry, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current, err := h.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	next := make([]HistoryEntry, 0, h.limit)
	next = append(next, entry)
	for _, e := range current {
		if len(next) >= h.limit {
			break
		}
		next = append(next, e)
	}

	if err := h.storage.Save(ctx, sessionID, next); err != nil {
		return nil, fmt.Errorf("failed to save history: %w", err)
	}
	return next, nil
}

// List 回傳最近的記錄
func (h *History) List(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	entries, err := h.storage.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// Entry 取得指定位置（0 為最新）的記錄
func (h *History) Entry(ctx context.Context, sessionID string, index int) (HistoryEntry, error) {
	entries, err := h.List(ctx, sessionID)
	if err != nil {
		return HistoryEntry{}, err
	}
	if index < 0 || index >= len(entries) {
		return HistoryEntry{}, common.Wrap(common.ErrNotFound, fmt.Errorf("history index %d out of range", index))
	}
	return entries[index], nil
}

// Clear 清除記錄
func (h *History) Clear(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.storage.Delete(ctx, sessionID)
}
