package config

import (
	"os"
	"path/filepath"
	"strings"
)

// GetConfigDir returns the guardian configuration directory
func GetConfigDir() string {
	if dir := os.Getenv("GUARDIAN_CONFIG_DIR"); dir != "" {
		return dir
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "guardian")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ".guardian"
	}
	return filepath.Join(home, ".guardian")
}

// GetConfigPath returns the path to the main config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return os.ExpandEnv(path)
}
