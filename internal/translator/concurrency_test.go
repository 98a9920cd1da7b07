package translator

import (
	"context"
	"runtime"
	"testing"
	"time"
)

type slowMockModel struct {
	t *testing.T
}

func (m *slowMockModel) Complete(ctx context.Context, system, input string) (*Completion, error) {
	// Simulate slow API call
	time.Sleep(100 * time.Millisecond)
	return &Completion{Text: answer(m.t, input, func(string) string { return "translated" })}, nil
}

func TestTranslator_GoroutineLimit(t *testing.T) {
	oldQPS := defaultQPS
	defaultQPS = 0
	defer func() { defaultQPS = oldQPS }()

	concurrency := 5
	chunkCount := 100

	tr, err := NewTranslator(&slowMockModel{t: t}, 1, 0, concurrency)
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}

	texts := make([]string, chunkCount)
	for i := range texts {
		texts[i] = "test"
	}

	initialGoroutines := runtime.NumGoroutine()

	errChan := make(chan error, 1)
	go func() {
		_, err := tr.Translate(context.Background(), "ko", texts)
		errChan <- err
	}()

	// Wait a bit for goroutines to ramp up
	time.Sleep(500 * time.Millisecond)

	currentGoroutines := runtime.NumGoroutine()
	if currentGoroutines > initialGoroutines+concurrency+10 {
		t.Errorf("Too many goroutines: got %d, initial was %d, concurrency is %d", currentGoroutines, initialGoroutines, concurrency)
	}

	if err := <-errChan; err != nil {
		t.Errorf("Translate failed: %v", err)
	}
}
