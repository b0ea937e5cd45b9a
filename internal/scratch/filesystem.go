package scratch

import (
	"fmt"
	"io"
	"os"

	"sfh-go/internal/sfh"
)

// FileSystemScratch is a filesystem-based implementation of the Scratch
// interface. All directories and spool files live under a single root
// created at construction time, so Cleanup is one RemoveAll.
type FileSystemScratch struct {
	root string
}

// NewFileSystemScratch creates a scratch area under baseDir. baseDir may
// be empty, in which case the system temp directory is used.
func NewFileSystemScratch(baseDir string) (*FileSystemScratch, error) {
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create scratch base directory: %w", err)
		}
	}

	root, err := os.MkdirTemp(baseDir, "sfh-scratch-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}

	return &FileSystemScratch{root: root}, nil
}

// TempDir creates a fresh directory inside the scratch area.
func (s *FileSystemScratch) TempDir(pattern string) (string, error) {
	dir, err := os.MkdirTemp(s.root, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

// TempFile spools r into a file inside the scratch area and returns its path.
func (s *FileSystemScratch) TempFile(r io.Reader) (string, error) {
	f, err := os.CreateTemp(s.root, "spool-*")
	if err != nil {
		return "", fmt.Errorf("failed to create spool file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to spool data: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close spool file: %w", err)
	}

	return f.Name(), nil
}

// Root returns the scratch root directory.
func (s *FileSystemScratch) Root() string {
	return s.root
}

// Cleanup removes the scratch area and everything in it.
func (s *FileSystemScratch) Cleanup() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to remove scratch root: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemScratch implements the sfh.Scratch interface
var _ sfh.Scratch = (*FileSystemScratch)(nil)
