package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file, applies defaults, and resolves relative
// paths against the config file's directory. An empty path returns the
// defaults with paths resolved against the working directory.
func Load(path string) (*Config, error) {
	cfg := Default()

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolving config path: %w", err)
		}
		baseDir = filepath.Dir(abs)
	}

	cfg.BaseDir = baseDir
	cfg.Files.Root = resolve(baseDir, cfg.Files.Root)
	if cfg.Static.Root != "" {
		cfg.Static.Root = resolve(baseDir, cfg.Static.Root)
	}
	if cfg.EvalLog.Path != "" {
		cfg.EvalLog.Path = resolve(baseDir, cfg.EvalLog.Path)
	}
	if cfg.Logging.File != "" {
		cfg.Logging.File = resolve(baseDir, cfg.Logging.File)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	return cfg, nil
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
