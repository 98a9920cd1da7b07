package translator

import (
	"context"
	"sync"
)

// MockModel returns a fixed completion and records the last prompt.
type MockModel struct {
	Text  string
	Usage Usage
	Error error

	mu         sync.Mutex
	LastSystem string
	LastInput  string
	Calls      int
}

func (m *MockModel) Complete(ctx context.Context, system, input string) (*Completion, error) {
	m.mu.Lock()
	m.LastSystem = system
	m.LastInput = input
	m.Calls++
	m.mu.Unlock()
	if m.Error != nil {
		return nil, m.Error
	}
	return &Completion{Text: m.Text, Usage: m.Usage}, nil
}
