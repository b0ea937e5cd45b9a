package hunters

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"sfh-go/internal/model"
	"sfh-go/internal/sfh"
)

// LocalHunter walks one or more directories on the local filesystem.
type LocalHunter struct {
	common
	paths []string
}

// NewLocalHunter creates a hunter over the given root directories. All
// roots must exist.
func NewLocalHunter(workspace string, paths []string, limits sfh.Limits, logger sfh.Logger) (*LocalHunter, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("at least one path is required")
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving path %s: %w", p, err)
		}
		info, err := os.Stat(a)
		if err != nil {
			return nil, fmt.Errorf("stat path %s: %w", a, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("path is not a directory: %s", a)
		}
		abs = append(abs, a)
	}

	return &LocalHunter{
		common: common{
			target: sfh.Target{Workspace: workspace, Address: "127.0.0.1", Kind: model.KindLocal},
			limits: limits,
			logger: logger,
		},
		paths: abs,
	}, nil
}

// Enumerate walks every root. Unreadable items are logged and skipped;
// the walk itself only aborts on context cancellation.
func (h *LocalHunter) Enumerate(ctx context.Context, q *sfh.WorkQueue) error {
	for _, root := range h.paths {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				h.logger.Error("cannot access item", "path", p, "error", err)
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				h.logger.Error("cannot stat file", "path", p, "error", err)
				return nil
			}

			e := h.newEntry("", p, info.Size())
			if e == nil {
				return nil
			}
			mod := info.ModTime()
			e.ModifiedTime = &mod
			e.AccessTime, e.CreationTime = statTimes(info)
			if !e.Oversize {
				filePath := p
				e.Fetch = func() ([]byte, error) { return os.ReadFile(filePath) }
			}
			return put(ctx, q, e)
		})
		if err != nil {
			return fmt.Errorf("walking %s: %w", root, err)
		}
	}
	return nil
}

var _ sfh.Hunter = (*LocalHunter)(nil)
