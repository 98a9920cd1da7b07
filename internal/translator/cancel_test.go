package translator

import (
	"context"
	"errors"
	"testing"
)

type blockingModel struct {
	started chan struct{}
}

func (m *blockingModel) Complete(ctx context.Context, system, input string) (*Completion, error) {
	select {
	case <-m.started:
	default:
		close(m.started)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTranslate_CancelReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	tr, err := NewTranslator(&blockingModel{started: started}, 1, 0, 1)
	if err != nil {
		t.Fatalf("NewTranslator failed: %v", err)
	}

	var canceled bool
	tr.SetProgressHandler(func(p TranslationProgress) {
		if p.State == StateCanceled {
			canceled = true
		}
	})

	translated, err := tr.Translate(ctx, "ko", []string{"hello", "world"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if translated != nil {
		t.Fatalf("expected no partial result, got %q", translated)
	}
	if !canceled {
		t.Fatal("expected a canceled progress event")
	}
}
