package backend

import (
	"context"
	"strings"
	"sync"
)

// Mock is an in-memory Translator and Service for tests and dry runs.
type Mock struct {
	// TranslateFunc translates one text. Nil uses Pseudo.
	TranslateFunc func(target, text string) string
	// DetectFunc returns a language code. Nil answers "und".
	DetectFunc func(text string) string
	// Gate, when set, holds every translate call until it can receive or is closed.
	Gate chan struct{}
	// Err fails every call when set.
	Err error

	mu      sync.Mutex
	batches [][][]string
	texts   [][]string
	singles []string
	detects []string
}

// Pseudo marks text as translated to target and keeps its outer whitespace.
func Pseudo(target, text string) string {
	core := strings.TrimSpace(text)
	if core == "" {
		return text
	}
	start := strings.Index(text, core)
	return text[:start] + "[" + target + "] " + core + text[start+len(core):]
}

func (m *Mock) translate(target, text string) string {
	if m.TranslateFunc != nil {
		return m.TranslateFunc(target, text)
	}
	return Pseudo(target, text)
}

func (m *Mock) wait(ctx context.Context) error {
	if m.Gate == nil {
		return m.Err
	}
	select {
	case <-m.Gate:
		return m.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mock) TranslateBatch(ctx context.Context, _ string, target string, batch [][]string) ([][]string, error) {
	m.mu.Lock()
	m.batches = append(m.batches, batch)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out := make([][]string, len(batch))
	for i, unit := range batch {
		out[i] = make([]string, len(unit))
		for j, t := range unit {
			out[i][j] = m.translate(target, t)
		}
	}
	return out, nil
}

func (m *Mock) TranslateText(ctx context.Context, _ string, target string, texts []string) ([]string, error) {
	m.mu.Lock()
	m.texts = append(m.texts, texts)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = m.translate(target, t)
	}
	return out, nil
}

func (m *Mock) TranslateSingleText(ctx context.Context, _ string, target, text string) (string, error) {
	m.mu.Lock()
	m.singles = append(m.singles, text)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	return m.translate(target, text), nil
}

// Translate lets a Mock be registered with a Router.
func (m *Mock) Translate(ctx context.Context, target string, texts []string) ([]string, error) {
	return m.TranslateText(ctx, "", target, texts)
}

func (m *Mock) DetectLanguage(_ context.Context, text string) (string, error) {
	m.mu.Lock()
	m.detects = append(m.detects, text)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if m.DetectFunc == nil {
		return "und", nil
	}
	return m.DetectFunc(text), nil
}

// Batches returns the batches received so far.
func (m *Mock) Batches() [][][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][][]string(nil), m.batches...)
}

// Texts returns the TranslateText requests received so far.
func (m *Mock) Texts() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.texts...)
}

// Singles returns the texts sent through TranslateSingleText.
func (m *Mock) Singles() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.singles...)
}

// Detects returns the texts sent for language detection.
func (m *Mock) Detects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.detects...)
}
