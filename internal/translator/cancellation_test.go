package translator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type cancelMockModel struct {
	t         *testing.T
	callCount int32
}

func (m *cancelMockModel) Complete(ctx context.Context, system, input string) (*Completion, error) {
	atomic.AddInt32(&m.callCount, 1)
	// Simulate some work
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}
	return &Completion{Text: answer(m.t, input, func(string) string { return "translated" })}, nil
}

func TestTranslator_Cancellation(t *testing.T) {
	oldQPS := defaultQPS
	oldRamp := defaultRampUp
	defaultQPS = 1000
	defaultRampUp = 0
	defer func() {
		defaultQPS = oldQPS
		defaultRampUp = oldRamp
	}()

	mock := &cancelMockModel{t: t}
	tr, _ := NewTranslator(mock, 1, 0, 5)

	// 20 texts, 20 chunks since chunkSize=1
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = "test"
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel after 250ms (should have started some chunks but not all)
	go func() {
		time.Sleep(250 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _ = tr.Translate(ctx, "ko", texts)
	duration := time.Since(start)

	finalCalls := atomic.LoadInt32(&mock.callCount)
	if finalCalls >= 20 {
		t.Errorf("Expected fewer than 20 calls due to cancellation, got %d", finalCalls)
	}

	if duration > 600*time.Millisecond {
		t.Errorf("Translate took too long to return after cancellation: %v", duration)
	}
}
