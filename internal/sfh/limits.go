package sfh

import (
	"path"
	"strings"
)

// Limits holds the two size ceilings and the archive allow-list. A
// ceiling at or below zero means unlimited. Archives get their own,
// typically larger ceiling since they represent bulk content.
type Limits struct {
	FileSizeThreshold    int64
	ArchiveSizeThreshold int64
	ArchiveExtensions    []string
}

// IsArchive reports whether the file name carries an extension from
// the archive allow-list. Compound extensions (tar.gz) are checked
// before simple ones.
func (l Limits) IsArchive(name string) bool {
	lower := strings.ToLower(path.Base(name))
	for _, ext := range l.ArchiveExtensions {
		if strings.HasSuffix(lower, "."+strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// BelowThreshold reports whether an entry of the given size may have
// its content imported. Empty files are never imported. The archive
// ceiling applies to names on the archive allow-list, the plain-file
// ceiling to everything else.
func (l Limits) BelowThreshold(name string, size int64) bool {
	if size <= 0 {
		return false
	}
	if l.IsArchive(name) {
		return l.ArchiveSizeThreshold <= 0 || size <= l.ArchiveSizeThreshold
	}
	return l.FileSizeThreshold <= 0 || size <= l.FileSizeThreshold
}
