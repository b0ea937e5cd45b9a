package sfh

import (
	"fmt"
	"path"
	"strings"
	"time"

	"sfh-go/internal/model"
)

// Target identifies the service one hunter invocation scans. The
// pipeline resolves it to workspace/host/service rows on first use.
type Target struct {
	Workspace string
	Address   string
	Port      int64
	Kind      model.ServiceKind
}

func (t Target) String() string {
	if t.Port > 0 {
		return fmt.Sprintf("%s://%s:%d", t.Kind, t.Address, t.Port)
	}
	return fmt.Sprintf("%s://%s", t.Kind, t.Address)
}

// Entry is one discovered filesystem-like item before persistence.
// Content is either inline or provided lazily via Fetch; entries above
// the plain-file size ceiling carry no content at all (Oversize set)
// and only their path and name are evaluated.
type Entry struct {
	Target       Target
	Share        string
	FullPath     string // Normalized with forward slashes
	SizeBytes    int64
	AccessTime   *time.Time
	ModifiedTime *time.Time
	CreationTime *time.Time
	Oversize     bool

	// Content holds the raw bytes once materialized. Fetch, when set,
	// is invoked at most once to materialize them.
	Content []byte
	Fetch   func() ([]byte, error)

	// Depth counts archive nesting levels above this entry.
	Depth int

	fetched bool
}

// NewEntry creates an entry for the given target and path. Backslashes
// in the path are normalized to forward slashes.
func NewEntry(target Target, share, fullPath string, size int64) *Entry {
	return &Entry{
		Target:    target,
		Share:     share,
		FullPath:  strings.ReplaceAll(fullPath, "\\", "/"),
		SizeBytes: size,
	}
}

// FileName returns the basename of the entry's full path.
func (e *Entry) FileName() string {
	return path.Base(e.FullPath)
}

// Extension returns the entry's file extension, lowercased, without
// the leading dot. Empty when the name has no extension.
func (e *Entry) Extension() string {
	ext := path.Ext(e.FullPath)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Bytes materializes and returns the entry's content. The fetch
// callback runs at most once; later calls return the cached bytes.
func (e *Entry) Bytes() ([]byte, error) {
	if e.Oversize {
		return nil, fmt.Errorf("content not available: %s exceeds import threshold", e.FullPath)
	}
	if e.fetched || e.Fetch == nil {
		return e.Content, nil
	}
	content, err := e.Fetch()
	if err != nil {
		return nil, fmt.Errorf("fetching content of %s: %w", e.FullPath, err)
	}
	e.Content = content
	e.fetched = true
	return e.Content, nil
}

// Placeholder returns the stored-content marker for entries whose size
// exceeds the import threshold.
func (e *Entry) Placeholder() []byte {
	return []byte(fmt.Sprintf("[file (%s) not imported as file size (%d) is above threshold]",
		e.String(), e.SizeBytes))
}

func (e *Entry) String() string {
	result := e.Target.String()
	if e.Share != "" {
		result += "/" + e.Share
	}
	if e.FullPath != "" && !strings.HasPrefix(e.FullPath, "/") {
		result += "/"
	}
	return result + e.FullPath
}
