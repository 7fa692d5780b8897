package app

import (
	"fmt"
	"os"
	"path/filepath"

	"seswi-go/internal/config"
)

// Environment overrides for the default locations.
const (
	EnvConfigPath = "SESWI_CONFIG_PATH"
	EnvHome       = "SESWI_HOME"
)

// Defaults are the locations used when no config says otherwise.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults resolves the default locations. SESWI_CONFIG_PATH replaces
// ~/.config/seswi.toml and SESWI_HOME replaces ~/.local/share/seswi.
func GetDefaults() (*Defaults, error) {
	configPath, err := envOrHome(EnvConfigPath, ".config", "seswi.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := envOrHome(EnvHome, ".local", "share", "seswi")
	if err != nil {
		return nil, err
	}
	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// NewConfig returns a fresh config rooted at the default base directory.
func (d *Defaults) NewConfig(instanceID string) *config.Config {
	return config.NewConfig(instanceID, d.BaseDir)
}

func envOrHome(env string, rel ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, rel...)...), nil
}
