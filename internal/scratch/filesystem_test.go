package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemScratch(t *testing.T) {
	t.Run("creates directories and spool files under one root", func(t *testing.T) {
		s, err := NewFileSystemScratch(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemScratch() error = %v", err)
		}

		dir, err := s.TempDir("clone-*")
		if err != nil {
			t.Fatalf("TempDir() error = %v", err)
		}
		if !strings.HasPrefix(dir, s.Root()) {
			t.Errorf("TempDir() = %q, want prefix %q", dir, s.Root())
		}

		path, err := s.TempFile(strings.NewReader("spooled data"))
		if err != nil {
			t.Fatalf("TempFile() error = %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading spool file: %v", err)
		}
		if string(data) != "spooled data" {
			t.Errorf("spool file content = %q, want %q", data, "spooled data")
		}
	})

	t.Run("cleanup removes everything", func(t *testing.T) {
		base := t.TempDir()
		s, err := NewFileSystemScratch(base)
		if err != nil {
			t.Fatalf("NewFileSystemScratch() error = %v", err)
		}
		if _, err := s.TempFile(strings.NewReader("x")); err != nil {
			t.Fatalf("TempFile() error = %v", err)
		}

		if err := s.Cleanup(); err != nil {
			t.Fatalf("Cleanup() error = %v", err)
		}
		if _, err := os.Stat(s.Root()); !os.IsNotExist(err) {
			t.Errorf("scratch root still exists after Cleanup")
		}
	})

	t.Run("creates missing base directory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "scratch")
		s, err := NewFileSystemScratch(base)
		if err != nil {
			t.Fatalf("NewFileSystemScratch() error = %v", err)
		}
		defer s.Cleanup()

		if _, err := os.Stat(base); err != nil {
			t.Errorf("base directory not created: %v", err)
		}
	})
}
