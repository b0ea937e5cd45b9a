package testutil

import (
	"time"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// TestTarget returns a fixed SMB scan target in the given workspace.
func TestTarget(workspace string) sfh.Target {
	return sfh.Target{
		Workspace: workspace,
		Address:   "10.0.0.5",
		Port:      445,
		Kind:      model.KindSMB,
	}
}

// NewTestEntry builds an entry with inline content and a fixed
// modification time.
func NewTestEntry(target sfh.Target, fullPath string, content []byte) *sfh.Entry {
	e := sfh.NewEntry(target, "share", fullPath, int64(len(content)))
	e.Content = content
	mod := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	e.ModifiedTime = &mod
	return e
}

// NewOversizeEntry builds an entry flagged oversize with the given
// claimed size and no content.
func NewOversizeEntry(target sfh.Target, fullPath string, size int64) *sfh.Entry {
	e := sfh.NewEntry(target, "share", fullPath, size)
	e.Oversize = true
	return e
}
