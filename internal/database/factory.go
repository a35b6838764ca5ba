package database

import (
	"fmt"
	"os"
	"path/filepath"

	"hoard-go/internal/config"
	"hoard-go/internal/hoard"
)

// NewStoreFromConfig creates a RunStore implementation based on the database
// config type. hostID scopes the database file so two hosts sharing a NAS
// never collide.
func NewStoreFromConfig(cfg config.DatabaseConfig, hostID string) (hoard.RunStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
