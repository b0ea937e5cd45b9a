package database

import (
	"fmt"
	"path/filepath"

	"sfh-go/internal/config"
	"sfh-go/internal/sfh"
)

// NewDatabaseFromConfig creates a Database implementation based on the
// database config type. All workspaces share one store; workspaces are
// rows, not files.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock sfh.Clock, idGen sfh.IDGenerator) (sfh.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		dbPath := filepath.Join(cfg.DataDir, "sfh.db")
		return NewSQLiteDatabase(dbPath, clock, idGen)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock, idGen)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
