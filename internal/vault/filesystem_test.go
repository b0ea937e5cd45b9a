package vault

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemVault_PutGet(t *testing.T) {
	t.Run("round-trips an object", func(t *testing.T) {
		v, err := NewFileSystemVault("export", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		data := []byte("report data")
		if err := v.Put("acme/report.csv", bytes.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.Get("acme/report.csv", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !bytes.Equal(buf.Bytes(), data) {
			t.Errorf("Get() = %q, want %q", buf.Bytes(), data)
		}
	})

	t.Run("overwrites on repeated put", func(t *testing.T) {
		v, err := NewFileSystemVault("export", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := v.Put("obj", strings.NewReader("one"), 3); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := v.Put("obj", strings.NewReader("two"), 3); err != nil {
			t.Fatalf("Put() second error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.Get("obj", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "two" {
			t.Errorf("Get() = %q, want %q", buf.String(), "two")
		}
	})

	t.Run("errors on size mismatch", func(t *testing.T) {
		v, err := NewFileSystemVault("export", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := v.Put("obj", strings.NewReader("short"), 100); err == nil {
			t.Error("Put() expected size mismatch error, got nil")
		}
	})

	t.Run("errors on missing object", func(t *testing.T) {
		v, err := NewFileSystemVault("export", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.Get("nonexistent", &buf); err == nil {
			t.Error("Get() expected error for missing object, got nil")
		}
	})

	t.Run("rejects names escaping the root", func(t *testing.T) {
		root := t.TempDir()
		v, err := NewFileSystemVault("export", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		for _, name := range []string{"../outside", "/etc/passwd", "a/../../b"} {
			if err := v.Put(name, strings.NewReader("x"), 1); err == nil {
				t.Errorf("Put(%q) expected error, got nil", name)
			}
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	t.Run("succeeds for writable root", func(t *testing.T) {
		v, err := NewFileSystemVault("export", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("fails when root removed", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")
		v, err := NewFileSystemVault("export", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := os.RemoveAll(root); err != nil {
			t.Fatalf("removing root: %v", err)
		}
		if err := v.ValidateSetup(); err == nil {
			t.Error("ValidateSetup() expected error for missing root, got nil")
		}
	})
}
