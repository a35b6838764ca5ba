package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment
// variables first. Environment variables:
//   - HOARD_CONFIG_PATH: config file location (default: ~/.config/hoard.toml)
//   - HOARD_HOME: base directory for hoard state (default: ~/.local/share/hoard)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"archive_dir": filepath.Join(baseDir, "archive"),
	}, nil
}

// getConfigPath returns the config file path, checking HOARD_CONFIG_PATH
// first, then falling back to ~/.config/hoard.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("HOARD_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "hoard.toml"), nil
}

// getBaseDir returns the base directory for hoard state, checking HOARD_HOME
// first, then falling back to the XDG default ~/.local/share/hoard.
func getBaseDir() (string, error) {
	if path := os.Getenv("HOARD_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "hoard"), nil
}
