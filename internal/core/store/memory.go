package store

import (
	"context"
	"sync"
	"time"

	"meal-intake/internal/core/intake"
	"meal-intake/internal/pkg/common"

	"go.uber.org/zap"
)

// MemoryStore 記憶體歷史儲存，帶 TTL 與容量上限
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	maxSize  int
	stop     chan struct{}
	once     sync.Once
	stats    storeStats
}

// sessionEntry 單一 session 的記錄
type sessionEntry struct {
	entries    []intake.HistoryEntry
	expiresAt  time.Time
	lastAccess time.Time
}

// storeStats 儲存統計
type storeStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewMemoryStore 創建記憶體儲存；cleanupInterval > 0 時啟動清理協程
func NewMemoryStore(ttl time.Duration, maxSize int, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		maxSize:  maxSize,
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.startCleanup(cleanupInterval)
	}

	common.LogInfo("歷史儲存已初始化",
		zap.String("backend", "memory"),
		zap.Int("最大容量", maxSize),
		zap.Duration("存活時間", ttl),
	)
	return s
}

// Load 讀取記錄；過期或不存在時回傳空列表
func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]intake.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok || s.expired(e) {
		if ok {
			delete(s.sessions, sessionID)
			s.stats.evictions++
		}
		s.stats.misses++
		return []intake.HistoryEntry{}, nil
	}

	e.lastAccess = time.Now()
	s.sessions[sessionID] = e
	s.stats.hits++
	return append([]intake.HistoryEntry(nil), e.entries...), nil
}

// Save 覆寫記錄
func (s *MemoryStore) Save(ctx context.Context, sessionID string, entries []intake.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists && s.maxSize > 0 && len(s.sessions) >= s.maxSize {
		// 先清理過期項目，仍然滿了就淘汰最久未使用的
		if s.cleanup() == 0 {
			s.evictLRU()
		}
	}

	now := time.Now()
	s.sessions[sessionID] = sessionEntry{
		entries:    append([]intake.HistoryEntry(nil), entries...),
		expiresAt:  now.Add(s.ttl),
		lastAccess: now,
	}
	return nil
}

// Delete 刪除記錄
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) expired(e sessionEntry) bool {
	return s.ttl > 0 && time.Now().After(e.expiresAt)
}

// startCleanup 定期清理過期記錄
func (s *MemoryStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.cleanup()
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// cleanup 清理過期的記錄（呼叫端持有鎖）
func (s *MemoryStore) cleanup() int {
	count := 0
	for key, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, key)
			count++
			s.stats.evictions++
		}
	}
	if count > 0 {
		common.LogDebug("Cleaned up expired history",
			zap.Int("count", count),
			zap.Int("remaining_size", len(s.sessions)),
		)
	}
	return count
}

// evictLRU 淘汰最久未使用的 session（呼叫端持有鎖）
func (s *MemoryStore) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, e := range s.sessions {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey, oldest = key, e.lastAccess
		}
	}
	if oldestKey != "" {
		delete(s.sessions, oldestKey)
		s.stats.evictions++
	}
}

// GetStats 獲取統計信息
func (s *MemoryStore) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"sessions":  len(s.sessions),
		"max_size":  s.maxSize,
		"hits":      s.stats.hits,
		"misses":    s.stats.misses,
		"evictions": s.stats.evictions,
	}
}

// Ping 記憶體儲存永遠可用
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close 停止清理協程
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}
