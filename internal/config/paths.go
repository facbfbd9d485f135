package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/lexime/
//   - Linux:   $XDG_DATA_HOME/lexime or ~/.local/share/lexime/
//   - Windows: %APPDATA%\lexime\
//
// On Windows with %APPDATA% unset, falls back to ~/lexime.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "lexime")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, _ := os.UserHomeDir()
			return filepath.Join(home, "lexime")
		}
		return filepath.Join(appData, "lexime")
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "lexime")
	}
}

// PlatformConfigDir returns the platform-specific config directory, where
// settings.toml and romaji.toml are looked up.
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return PlatformDataDir()
	case "windows":
		return PlatformDataDir()
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, _ := os.UserHomeDir()
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "lexime")
	}
}

// SettingsPath returns the default settings.toml location.
func SettingsPath() string {
	return filepath.Join(PlatformConfigDir(), "settings.toml")
}

// RomajiPath returns the default romaji.toml location.
func RomajiPath() string {
	return filepath.Join(PlatformConfigDir(), "romaji.toml")
}
