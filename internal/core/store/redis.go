package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meal-intake/internal/core/intake"
	"meal-intake/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "intake:history:"

// RedisStore Redis 歷史儲存；每個 session 一個 JSON 值
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOptions Redis 連線設定
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisStore 連線並測試
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: opts.TTL}, nil
}

// Load 讀取記錄
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]intake.HistoryEntry, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []intake.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	var entries []intake.HistoryEntry
	if err := common.ParseJSONBytes(data, &entries); err != nil {
		// 損壞的資料直接視為空，歷史只是輔助資訊
		return []intake.HistoryEntry{}, nil
	}
	return entries, nil
}

// Save 覆寫記錄並更新 TTL（last-writer-wins）
func (s *RedisStore) Save(ctx context.Context, sessionID string, entries []intake.HistoryEntry) error {
	data, err := common.ToJSON(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set history: %w", err)
	}
	return nil
}

// Delete 刪除記錄
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// Ping 檢查連線
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close 關閉連線
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// key 生成 Redis 鍵
func (s *RedisStore) key(sessionID string) string {
	return keyPrefix + sessionID
}
