package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"meal-intake/internal/core/ai/provider"
	"meal-intake/internal/pkg/common"

	"go.uber.org/zap"
)

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	InFlight       int `json:"in_flight"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 隊列管理器：限制同時進行的上游呼叫，超出的請求排隊等待
type Manager struct {
	slots     chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	maxQueue  int
	waiting   int64
	processed int64
}

// NewManager 創建新的隊列管理器
func NewManager(workers, maxQueue int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	return &Manager{
		slots:    make(chan struct{}, workers),
		done:     make(chan struct{}),
		maxQueue: maxQueue,
	}
}

// Acquire 取得一個執行名額；回傳的 release 必須呼叫一次
// 等待中的請求已滿時立即回傳 ErrServiceUnavailable
func (m *Manager) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case <-m.done:
		return nil, common.ErrServiceUnavailable
	default:
	}

	// 有空位時不排隊
	select {
	case m.slots <- struct{}{}:
		return m.releaser(), nil
	default:
	}

	if atomic.AddInt64(&m.waiting, 1) > int64(m.maxQueue) {
		atomic.AddInt64(&m.waiting, -1)
		common.LogWarn("Generation queue is full",
			zap.Int("max_queue_size", m.maxQueue),
			zap.Int("workers", cap(m.slots)),
		)
		return nil, common.ErrServiceUnavailable
	}
	defer atomic.AddInt64(&m.waiting, -1)

	select {
	case m.slots <- struct{}{}:
		return m.releaser(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, common.ErrServiceUnavailable
	}
}

func (m *Manager) releaser() func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.slots
			atomic.AddInt64(&m.processed, 1)
		})
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    int(atomic.LoadInt64(&m.waiting)),
		InFlight:       len(m.slots),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.maxQueue,
		Workers:        cap(m.slots),
	}
}

// Close 關閉隊列管理器，等待中的請求會收到 ErrServiceUnavailable
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

// Limited 以隊列包裝生成服務
type Limited struct {
	provider.Provider
	queue *Manager
}

// Wrap 讓每次 Generate 都先取得隊列名額
func Wrap(p provider.Provider, m *Manager) *Limited {
	return &Limited{Provider: p, queue: m}
}

// Generate 排隊後呼叫底層生成服務
func (l *Limited) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	release, err := l.queue.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return l.Provider.Generate(ctx, req)
}

// Close 關閉隊列與底層生成服務
func (l *Limited) Close() error {
	l.queue.Close()
	return l.Provider.Close()
}
