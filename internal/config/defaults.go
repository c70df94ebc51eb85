package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/imectx/
//   - Linux:   $XDG_CONFIG_HOME/imectx/ or ~/.config/imectx/
//   - Windows: %APPDATA%\imectx\
//
// IMECTX_CONFIG_DIR overrides all of them. Falls back to ~/.imectx.
func PlatformConfigDir() string {
	if dir := os.Getenv("IMECTX_CONFIG_DIR"); dir != "" {
		return dir
	}

	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "imectx")
		}
	default:
		if dir, err := os.UserConfigDir(); err == nil && dir != "" {
			return filepath.Join(dir, "imectx")
		}
	}
	return fallbackDir()
}

func fallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".imectx"
	}
	return filepath.Join(home, ".imectx")
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{
		"toml",
		"json",
		"yaml",
		"yml",
	}
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first found config file, or empty string if none found.
func FindConfigFile() string {
	// Search order:
	// 1. Current directory
	// 2. Config directory
	searchDirs := []string{
		".",
		PlatformConfigDir(),
	}

	for _, dir := range searchDirs {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "imectx."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		path := filepath.Join(dir, "config.toml")
		if dir != "." {
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}

	return ""
}
