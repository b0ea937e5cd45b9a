package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sfh-go/internal/sfh"
)

// FileSystemVault is a filesystem-based implementation of the Vault
// interface. Objects are stored as plain files under the vault root;
// slashes in object names become subdirectories, so a bundle exported
// as "acme/files/<digest>" lands where you would expect.
type FileSystemVault struct {
	name string
	root string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FileSystemVault{name: name, root: root}, nil
}

// Put stores an object under the given name. Storing the same name twice
// overwrites the previous object.
func (v *FileSystemVault) Put(name string, r io.Reader, size int64) error {
	destPath, err := v.objectPath(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}
	return writeFile(destPath, r, size)
}

// Get retrieves an object by name and writes it to w.
func (v *FileSystemVault) Get(name string, w io.Writer) error {
	srcPath, err := v.objectPath(name)
	if err != nil {
		return err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object not found: %s", name)
		}
		return fmt.Errorf("failed to open object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read object: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the vault root is accessible and writable.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	probe, err := os.CreateTemp(v.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("vault root not writable: %w", err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}

// objectPath maps an object name to a path under the vault root and
// rejects names that would escape it.
func (v *FileSystemVault) objectPath(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid object name: %s", name)
	}
	return filepath.Join(v.root, cleaned), nil
}

// writeFile writes data from r to the specified path using atomic write
// (temp file + rename).
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if expectedSize >= 0 && written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements the sfh.Vault interface
var _ sfh.Vault = (*FileSystemVault)(nil)
