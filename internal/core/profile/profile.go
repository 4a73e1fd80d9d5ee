package profile

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound 使用者沒有儲存的飲食資料
var ErrNotFound = errors.New("profile not found")

// Profile 使用者的飲食限制與過敏
type Profile struct {
	UserID              string    `json:"user_id"`
	DietaryRestrictions []string  `json:"dietary_restrictions"`
	Allergies           []string  `json:"allergies"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Store 飲食資料儲存
type Store interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
	Close() error
}

// MemoryStore 記憶體實作，用於開發與測試
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore 創建記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Get 讀取資料；回傳副本
func (s *MemoryStore) Get(ctx context.Context, userID string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	p.DietaryRestrictions = append([]string(nil), p.DietaryRestrictions...)
	p.Allergies = append([]string(nil), p.Allergies...)
	return &p, nil
}

// Upsert 新增或更新資料
func (s *MemoryStore) Upsert(ctx context.Context, p *Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	cp.DietaryRestrictions = append([]string(nil), p.DietaryRestrictions...)
	cp.Allergies = append([]string(nil), p.Allergies...)
	cp.UpdatedAt = time.Now()
	s.profiles[p.UserID] = cp
	return nil
}

// Close 無需釋放資源
func (s *MemoryStore) Close() error { return nil }
