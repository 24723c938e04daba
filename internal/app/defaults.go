package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - PIXARR_CONFIG: config file location (default: ~/.config/pixarr.toml)
//   - PIXARR_HOME: data directory holding media, ledger and logs (default: ~/.local/share/pixarr)
func GetDefaults() (map[string]string, error) {
	configPath, err := fromEnvOrHome("PIXARR_CONFIG", ".config", "pixarr.toml")
	if err != nil {
		return nil, err
	}
	dataDir, err := fromEnvOrHome("PIXARR_HOME", ".local", "share", "pixarr")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"data_dir":    dataDir,
		"log_dir":     filepath.Join(dataDir, "log"),
	}, nil
}

func fromEnvOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
