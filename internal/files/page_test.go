package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckPair(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.html")
	if err := os.WriteFile(in, []byte("<p>x</p>"), 0644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		input   string
		output  string
		wantErr string
		same    bool
	}{
		{name: "ok", input: in, output: filepath.Join(dir, "out.html")},
		{name: "same_path", input: in, output: in, same: true},
		{name: "same_after_clean", input: in, output: filepath.Join(dir, ".", "in.html"), same: true},
		{name: "missing_input", input: filepath.Join(dir, "nope.html"), output: filepath.Join(dir, "out.html"), wantErr: "failed to stat input path"},
		{name: "directory_input", input: dir, output: filepath.Join(dir, "out.html"), wantErr: "is a directory"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPair(tc.input, tc.output)
			switch {
			case tc.same:
				if !errors.Is(err, ErrSamePath) {
					t.Fatalf("expected ErrSamePath, got %v", err)
				}
			case tc.wantErr != "":
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected %q, got %v", tc.wantErr, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestReadPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := ReadPage(path)
	if err != nil {
		t.Fatalf("ReadPage: %v", err)
	}
	if string(data) != "<html></html>" {
		t.Fatalf("unexpected content %q", data)
	}
	if _, err := ReadPage(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestWritePage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.html")

	got, err := WritePage(path, []byte("first"), false)
	if err != nil || got != path {
		t.Fatalf("WritePage = %q, %v; want %q", got, err, path)
	}

	got, err = WritePage(path, []byte("second"), false)
	if err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	if want := filepath.Join(dir, "out_1.html"); got != want {
		t.Fatalf("WritePage kept existing file at %q, want %q", got, want)
	}
	if content, _ := os.ReadFile(path); string(content) != "first" {
		t.Fatalf("existing file changed: %q", content)
	}

	got, err = WritePage(path, []byte("third"), true)
	if err != nil || got != path {
		t.Fatalf("WritePage replace = %q, %v", got, err)
	}
	if content, _ := os.ReadFile(path); string(content) != "third" {
		t.Fatalf("expected replaced content, got %q", content)
	}
}
