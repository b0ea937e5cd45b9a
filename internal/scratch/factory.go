package scratch

import (
	"sfh-go/internal/config"
	"sfh-go/internal/sfh"
)

// NewScratchFromConfig creates a Scratch implementation from config.
// An empty dir falls back to the system temp directory.
func NewScratchFromConfig(cfg config.ScratchConfig) (sfh.Scratch, error) {
	return NewFileSystemScratch(cfg.Dir)
}
