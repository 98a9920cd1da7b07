package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWrite_Replaces(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "page.html")

	if err := AtomicWrite(path, []byte("<p>Hello</p>"), 0644); err != nil {
		t.Fatalf("initial write failed: %v", err)
	}
	if err := AtomicWrite(path, []byte("<p>World</p>"), 0644); err != nil {
		t.Fatalf("atomic replace failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(content) != "<p>World</p>" {
		t.Errorf("updated content incorrect: %s", content)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("failed to read tmp dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "dualpage-") && strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("leaked temp file found: %s", entry.Name())
		}
	}
}

func TestAtomicWrite_DirectoryError(t *testing.T) {
	if err := AtomicWrite("/non/existent/path/page.html", []byte("x"), 0644); err == nil {
		t.Errorf("expected error for invalid directory path, got nil")
	}
}
