package sfh

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// MaxArchiveDepth caps archive nesting. The expander refuses to open
// archives below this depth so a malicious archive bomb cannot grow
// the pipeline without bound.
const MaxArchiveDepth = 16

// ErrNotAnArchive is returned by Expand for entries that do not
// qualify for expansion.
var ErrNotAnArchive = errors.New("entry is not an expandable archive")

// ArchiveExpander extracts recognized archives into child entries that
// re-enter the analysis pipeline. Extraction failures are reported to
// the caller, which falls back to analyzing the archive file itself.
type ArchiveExpander struct {
	limits Limits
	logger Logger
}

// NewArchiveExpander creates an expander with the given limits.
func NewArchiveExpander(limits Limits, logger Logger) *ArchiveExpander {
	return &ArchiveExpander{limits: limits, logger: logger}
}

// CanExpand reports whether the entry qualifies for expansion: its
// extension is on the archive allow-list, its size is within the
// archive ceiling, and the nesting depth cap is not reached.
func (x *ArchiveExpander) CanExpand(e *Entry) bool {
	if e.Depth >= MaxArchiveDepth {
		return false
	}
	if !x.limits.IsArchive(e.FullPath) {
		return false
	}
	return x.limits.ArchiveSizeThreshold <= 0 || e.SizeBytes <= x.limits.ArchiveSizeThreshold
}

// Expand extracts the archive and returns one child entry per
// contained file. Child paths are synthesized as
// "<archive path>/<path inside archive>"; timestamps the format does
// not provide are inherited from the parent.
func (x *ArchiveExpander) Expand(e *Entry) ([]*Entry, error) {
	if !x.CanExpand(e) {
		return nil, ErrNotAnArchive
	}

	content, err := e.Bytes()
	if err != nil {
		return nil, err
	}

	name := strings.ToLower(e.FileName())
	switch {
	case strings.HasSuffix(name, ".zip"), strings.HasSuffix(name, ".jar"),
		strings.HasSuffix(name, ".war"), strings.HasSuffix(name, ".ear"):
		return x.expandZip(e, content)
	case strings.HasSuffix(name, ".tar"):
		return x.expandTar(e, bytes.NewReader(content))
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream of %s: %w", e.FullPath, err)
		}
		defer gz.Close()
		return x.expandTar(e, gz)
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz2"):
		return x.expandTar(e, bzip2.NewReader(bytes.NewReader(content)))
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream of %s: %w", e.FullPath, err)
		}
		defer zr.Close()
		return x.expandTar(e, zr)
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream of %s: %w", e.FullPath, err)
		}
		defer gz.Close()
		var mtime *time.Time
		if !gz.ModTime.IsZero() {
			t := gz.ModTime
			mtime = &t
		}
		return x.expandSingle(e, gz, strings.TrimSuffix(e.FileName(), ".gz"), mtime)
	case strings.HasSuffix(name, ".bz2"):
		return x.expandSingle(e, bzip2.NewReader(bytes.NewReader(content)),
			strings.TrimSuffix(e.FileName(), ".bz2"), nil)
	case strings.HasSuffix(name, ".zst"):
		zr, err := zstd.NewReader(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream of %s: %w", e.FullPath, err)
		}
		defer zr.Close()
		return x.expandSingle(e, zr, strings.TrimSuffix(e.FileName(), ".zst"), nil)
	}
	return nil, fmt.Errorf("no decoder for archive %s", e.FullPath)
}

func (x *ArchiveExpander) expandZip(e *Entry, content []byte) ([]*Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("opening zip %s: %w", e.FullPath, err)
	}

	var children []*Entry
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s inside %s: %w", f.Name, e.FullPath, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s inside %s: %w", f.Name, e.FullPath, err)
		}
		var mtime *time.Time
		if !f.Modified.IsZero() {
			t := f.Modified
			mtime = &t
		}
		children = append(children, x.child(e, f.Name, data, mtime))
	}
	return children, nil
}

func (x *ArchiveExpander) expandTar(e *Entry, r io.Reader) ([]*Entry, error) {
	tr := tar.NewReader(r)

	var children []*Entry
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar %s: %w", e.FullPath, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading %s inside %s: %w", hdr.Name, e.FullPath, err)
		}
		var mtime *time.Time
		if !hdr.ModTime.IsZero() {
			t := hdr.ModTime
			mtime = &t
		}
		children = append(children, x.child(e, hdr.Name, data, mtime))
	}
	return children, nil
}

func (x *ArchiveExpander) expandSingle(e *Entry, r io.Reader, name string, mtime *time.Time) ([]*Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", e.FullPath, err)
	}
	return []*Entry{x.child(e, name, data, mtime)}, nil
}

// child builds one extracted entry. Timestamps the archive format does
// not provide are inherited from the parent.
func (x *ArchiveExpander) child(parent *Entry, innerPath string, data []byte, mtime *time.Time) *Entry {
	c := NewEntry(parent.Target, parent.Share, parent.FullPath+"/"+strings.TrimPrefix(innerPath, "/"), int64(len(data)))
	c.Content = data
	c.Depth = parent.Depth + 1
	c.AccessTime = parent.AccessTime
	c.CreationTime = parent.CreationTime
	if mtime != nil {
		c.ModifiedTime = mtime
	} else {
		c.ModifiedTime = parent.ModifiedTime
	}
	return c
}
