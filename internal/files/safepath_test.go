package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafePath(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	free := filepath.Join(dir, "free.html")
	got, changed, err := SafePath(free)
	if err != nil || changed || got != free {
		t.Fatalf("SafePath(free) = %q, %v, %v", got, changed, err)
	}

	touch("page.html")
	got, changed, err = SafePath(filepath.Join(dir, "page.html"))
	if err != nil || !changed || got != filepath.Join(dir, "page_1.html") {
		t.Fatalf("SafePath(page) = %q, %v, %v", got, changed, err)
	}

	touch("page_1.html")
	touch("page_2.html")
	got, _, _ = SafePath(filepath.Join(dir, "page.html"))
	if got != filepath.Join(dir, "page_3.html") {
		t.Fatalf("expected first free suffix, got %q", got)
	}
}

func TestSafePath_FallsBackToUUID(t *testing.T) {
	dir := t.TempDir()
	names := []string{"out.html"}
	for i := 1; i <= 9; i++ {
		names = append(names, "out_"+string(rune('0'+i))+".html")
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatal(err)
		}
	}
	got, changed, err := SafePath(filepath.Join(dir, "out.html"))
	if err != nil || !changed {
		t.Fatalf("SafePath = %q, %v, %v", got, changed, err)
	}
	base := filepath.Base(got)
	if !strings.HasPrefix(base, "out_") || !strings.HasSuffix(base, ".html") || len(base) < len("out_.html")+36 {
		t.Fatalf("expected uuid suffix, got %q", base)
	}
}

func TestSafePath_Empty(t *testing.T) {
	if _, _, err := SafePath(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
