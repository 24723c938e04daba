package database

import (
	"fmt"
	"os"
	"path/filepath"

	"pixarr-go/internal/config"
	"pixarr-go/internal/pixarr"
)

// NewLedgerFromConfig creates a Ledger based on the database config type.
// A memory ledger is migrated immediately since it starts empty every time.
func NewLedgerFromConfig(cfg config.DatabaseConfig, clock pixarr.Clock) (pixarr.Ledger, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite database")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		l, err := NewSQLiteLedger(cfg.Path, clock)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "memory":
		l, err := NewSQLiteLedger(":memory:", clock)
		if err != nil {
			return nil, err
		}
		if err := l.Migrate(); err != nil {
			l.Close()
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
