package cleanup

import (
	"errors"
	"strings"
	"testing"
)

func TestRunAll_ReverseOrder(t *testing.T) {
	var order []string
	Register("first", func() error { order = append(order, "first"); return nil })
	Register("second", func() error { order = append(order, "second"); return nil })
	Register("nil", nil)

	if got := Pending(); got != 2 {
		t.Fatalf("Pending = %d, want 2", got)
	}
	if err := RunAll(); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if strings.Join(order, ",") != "second,first" {
		t.Fatalf("unexpected order %v", order)
	}
	if got := Pending(); got != 0 {
		t.Fatalf("hooks not cleared, Pending = %d", got)
	}
}

func TestRunAll_JoinsNamedErrors(t *testing.T) {
	errLog := errors.New("disk full")
	Register("log file", func() error { return errLog })
	ran := false
	Register("client", func() error { ran = true; return nil })

	err := RunAll()
	if !errors.Is(err, errLog) {
		t.Fatalf("expected wrapped hook error, got %v", err)
	}
	if !strings.Contains(err.Error(), "log file: disk full") {
		t.Fatalf("expected hook name in %q", err)
	}
	if !ran {
		t.Fatalf("later hooks should still run after a failure")
	}
	if err := RunAll(); err != nil {
		t.Fatalf("second RunAll should be a no-op, got %v", err)
	}
}
