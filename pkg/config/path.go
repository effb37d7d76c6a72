package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir is ~/.querybot.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".querybot"), nil
}

// ResolvePath picks the config file location: an explicit path wins, then
// $QUERYBOT_CONFIG, then ~/.querybot/config.toml. The file need not exist.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Abs(explicit)
	}

	if env := getEnv("QUERYBOT_CONFIG"); env != "" {
		return filepath.Abs(env)
	}

	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}
