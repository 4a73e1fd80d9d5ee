package intake

import (
	"context"
	"sync"
	"time"

	"meal-intake/internal/core/ai/provider"
)

// scriptedProvider 依序回傳預先設定的輸出或錯誤
type scriptedProvider struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
	images  []string
	timeout time.Duration
}

type reply struct {
	content string
	err     error
}

func (p *scriptedProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prompts = append(p.prompts, req.Prompt)
	p.images = append(p.images, req.ImageData)
	if len(p.replies) == 0 {
		return &provider.Response{}, nil
	}
	r := p.replies[0]
	if len(p.replies) > 1 {
		p.replies = p.replies[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return &provider.Response{Content: r.content}, nil
}

func (p *scriptedProvider) GetModel() string          { return "fake-model" }
func (p *scriptedProvider) GetTimeout() time.Duration { return p.timeout }
func (p *scriptedProvider) Close() error              { return nil }

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return f.text, f.err
}

type fakeImages struct{}

func (fakeImages) Process(data []byte) (string, error) {
	return "data:image/jpeg;base64,RkFLRQ==", nil
}

func (fakeImages) ProcessEncoded(encoded string) (string, error) {
	return "data:image/jpeg;base64,RkFLRQ==", nil
}

// memoryHistory 測試用的歷史儲存
type memoryHistory struct {
	mu   sync.Mutex
	data map[string][]HistoryEntry
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{data: map[string][]HistoryEntry{}}
}

func (m *memoryHistory) Load(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HistoryEntry(nil), m.data[sessionID]...), nil
}

func (m *memoryHistory) Save(ctx context.Context, sessionID string, entries []HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = append([]HistoryEntry(nil), entries...)
	return nil
}

func (m *memoryHistory) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

const recipeJSON = `{
  "type": "text",
  "message": "Entendi o teu pedido",
  "recipe": {
    "title": "Arroz de Frango",
    "description": "Clássico português",
    "prepTime": "45 minutos",
    "difficulty": "Médio",
    "servings": 4,
    "ingredients": [
      {"name": "Arroz", "quantity": "300g", "isRestricted": false},
      {"name": "Frango", "quantity": "500g", "isRestricted": false},
      {"name": "Ovos", "quantity": "2", "isRestricted": false}
    ],
    "steps": ["Cozer o frango", "Juntar o arroz"],
    "variations": {"quick": "Usar frango assado"},
    "chefTips": ["Usar caldo caseiro"]
  },
  "warnings": [],
  "substitutions": []
}`
