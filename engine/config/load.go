package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name looked up by Load.
const FileName = "viewer.yaml"

// Load builds the effective config: defaults, overlaid by ./viewer.yaml, overlaid by
// ConfigDir()/viewer.yaml. Missing files are skipped.
//
// Returns:
//   - *Config: the validated config
//   - error: a read, YAML or validation error
func Load() (*Config, error) {
	cfg := Default()
	for _, path := range []string{filepath.Join(".", FileName), filepath.Join(ConfigDir(), FileName)} {
		if err := overlayFile(cfg, path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a single YAML file over the defaults.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - *Config: the validated config
//   - error: a read, YAML or validation error
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := overlayFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Config: the validated config
//   - error: a YAML or validation error
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "OxyView")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "OxyView")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "oxy-view")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "oxy-view")
	}
}

// overlayFile unmarshals a YAML file onto cfg; keys absent from the file keep their value.
func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
