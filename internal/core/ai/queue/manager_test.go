package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"meal-intake/internal/core/ai/provider"
	"meal-intake/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWithinWorkers(t *testing.T) {
	m := NewManager(2, 0)

	r1, err := m.Acquire(context.Background())
	require.NoError(t, err)
	r2, err := m.Acquire(context.Background())
	require.NoError(t, err)

	status := m.GetQueueStatus()
	assert.Equal(t, 2, status.InFlight)
	assert.Equal(t, 2, status.Workers)

	r1()
	r1() // 重複呼叫不會多釋放
	r2()

	status = m.GetQueueStatus()
	assert.Equal(t, 0, status.InFlight)
	assert.Equal(t, 2, status.ProcessedCount)
}

func TestAcquireRejectsWhenQueueFull(t *testing.T) {
	m := NewManager(1, 0)

	release, err := m.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = m.Acquire(context.Background())
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}

func TestAcquireWaitsForSlot(t *testing.T) {
	m := NewManager(1, 1)

	release, err := m.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := m.Acquire(context.Background())
		if err == nil {
			r()
		}
		close(acquired)
	}()

	require.Eventually(t, func() bool { return m.GetQueueStatus().QueueLength == 1 }, time.Second, 5*time.Millisecond)
	release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiting request was not admitted")
	}
	assert.Equal(t, 0, m.GetQueueStatus().QueueLength)
}

func TestAcquireHonorsContext(t *testing.T) {
	m := NewManager(1, 4)
	release, err := m.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, m.GetQueueStatus().QueueLength)
}

func TestCloseRejectsWaiting(t *testing.T) {
	m := NewManager(1, 4)
	release, err := m.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	errs := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background())
		errs <- err
	}()
	require.Eventually(t, func() bool { return m.GetQueueStatus().QueueLength == 1 }, time.Second, 5*time.Millisecond)

	m.Close()
	m.Close()
	assert.ErrorIs(t, <-errs, common.ErrServiceUnavailable)

	_, err = m.Acquire(context.Background())
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}

// countingProvider 記錄同時進行的呼叫數
type countingProvider struct {
	mu      sync.Mutex
	active  int
	peak    int
	closed  bool
	release chan struct{}
}

func (p *countingProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	p.mu.Lock()
	p.active++
	if p.active > p.peak {
		p.peak = p.active
	}
	p.mu.Unlock()

	<-p.release

	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	return &provider.Response{Content: "{}"}, nil
}

func (p *countingProvider) GetModel() string { return "test" }
func (p *countingProvider) GetTimeout() time.Duration { return time.Second }
func (p *countingProvider) Close() error {
	p.closed = true
	return nil
}

func TestLimitedProviderCapsConcurrency(t *testing.T) {
	inner := &countingProvider{release: make(chan struct{})}
	limited := Wrap(inner, NewManager(2, 8))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := limited.Generate(context.Background(), &provider.Request{Prompt: "sopa"})
			assert.NoError(t, err)
		}()
	}

	require.Eventually(t, func() bool { return limited.queue.GetQueueStatus().QueueLength == 3 }, time.Second, 5*time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.Equal(t, 2, inner.peak)
	assert.Equal(t, 5, limited.queue.GetQueueStatus().ProcessedCount)
	assert.Equal(t, "test", limited.GetModel())

	require.NoError(t, limited.Close())
	assert.True(t, inner.closed)
}
