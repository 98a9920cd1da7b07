package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxPageBytes caps the size of a page file loaded into memory.
const MaxPageBytes = 64 << 20

// PagePerms are the permissions of written pages.
const PagePerms os.FileMode = 0644

// ErrSamePath is returned when input and output name the same file.
var ErrSamePath = errors.New("input and output files are the same")

// CheckPair validates an input/output pair before any work starts: the input
// must exist, the output must not be the input and must not go through a symlink.
func CheckPair(input, output string) error {
	absIn, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %w", err)
	}
	absOut, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	if absIn == absOut {
		return fmt.Errorf("%w (%s)", ErrSamePath, absIn)
	}
	inInfo, err := os.Stat(absIn)
	if err != nil {
		return fmt.Errorf("failed to stat input path: %w", err)
	}
	if inInfo.IsDir() {
		return fmt.Errorf("input path is a directory: %s", absIn)
	}
	if outInfo, err := os.Stat(absOut); err == nil && os.SameFile(inInfo, outInfo) {
		return fmt.Errorf("%w (%s)", ErrSamePath, absIn)
	}
	return RejectSymlinkPath(absOut)
}

// ReadPage loads a page file, refusing files over MaxPageBytes.
func ReadPage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	if len(data) > MaxPageBytes {
		return nil, fmt.Errorf("page %s is larger than %d bytes", path, MaxPageBytes)
	}
	return data, nil
}

// WritePage writes the rendered page atomically. Unless replace is set, an
// existing file is kept and a free name is chosen instead. It returns the
// path actually written.
func WritePage(path string, data []byte, replace bool) (string, error) {
	target := path
	if !replace {
		safe, _, err := SafePath(path)
		if err != nil {
			return "", fmt.Errorf("failed to resolve output path: %w", err)
		}
		target = safe
	}
	if err := AtomicWrite(target, data, PagePerms); err != nil {
		return "", fmt.Errorf("failed to save output file: %w", err)
	}
	return target, nil
}
