package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Load builds the configuration.
// Search order: customPath -> ~/.duelhub/config.yaml -> ./configs/duelhub.yaml.
// The first file found is laid over the embedded defaults, so it only needs
// the keys it changes. Environment variables are applied last, then the
// result is validated.
func Load(customPath string) (Config, error) {
	cfg := defaults()

	if customPath != "" {
		// An explicit path must exist.
		if err := overlayFile(&cfg, customPath); err != nil {
			return cfg, err
		}
	} else {
		for _, path := range searchPaths() {
			err := overlayFile(&cfg, path)
			if err == nil {
				break
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return cfg, err
			}
		}
	}

	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseEnv applies environment overrides to target.
// Variables that are not set leave the field unchanged.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

func defaults() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return Default() // Fallback to hardcoded if embed fails
	}
	return cfg
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

// searchPaths returns the implicit config locations in priority order.
func searchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".duelhub", "config.yaml"))
	}
	return append(paths, filepath.Join("configs", "duelhub.yaml"))
}
