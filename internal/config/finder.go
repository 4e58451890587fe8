package config

import (
	"os"
	"path/filepath"
)

// ConfigExtensions are the config file formats viper reads, in lookup order
var ConfigExtensions = []string{"yml", "yaml", "json", "toml"}

// FindLocalConfig finds local config file by walking up directories
func FindLocalConfig(dir string) string {
	for {
		for _, ext := range ConfigExtensions {
			path := filepath.Join(dir, ".respite."+ext)

			if _, err := os.Stat(path); err == nil {
				return path
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}

		dir = parent
	}

	return ""
}

// FindGlobalConfig returns the first config.<ext> in the user's respite config directory
func FindGlobalConfig() string {
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		return ""
	}

	for _, ext := range ConfigExtensions {
		path := filepath.Join(configDir, "respite", "config."+ext)

		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
