// Package config loads the server's YAML configuration.
package config

// Config is the complete server configuration.
type Config struct {
	BaseDir     string            `yaml:"-"` // directory of the config file, for resolving relative paths
	Server      ServerConfig      `yaml:"server"`
	Files       FilesConfig       `yaml:"files"`
	Static      StaticConfig      `yaml:"static"`
	Compression CompressionConfig `yaml:"compression"`
	Logging     LoggingConfig     `yaml:"logging"`
	EvalLog     EvalLogConfig     `yaml:"eval_log"`
	Auth        AuthConfig        `yaml:"auth"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Dev  bool   `yaml:"-"` // set via CLI flag, not config
}

// FilesConfig points at the endpoint files root; endpoint scripts live under
// its modules/ and system/ folders.
type FilesConfig struct {
	Root string `yaml:"root"`
}

// StaticConfig holds the static/mixin serving root. Empty disables static
// serving.
type StaticConfig struct {
	Root string `yaml:"root"`
}

// CompressionConfig controls the response compression middleware.
type CompressionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`    // "fastest", "default", "best" or "none"
	MinSize int    `yaml:"min_size"` // bytes below which responses stay uncompressed
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format     string `yaml:"format"` // "console" or "json"
	File       string `yaml:"file"`   // optional log file, rotated
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// EvalLogConfig controls the optional SQLite evaluation log.
type EvalLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuthConfig maps bearer tokens to the roles they grant.
type AuthConfig struct {
	Tokens map[string][]string `yaml:"tokens"`
}

// Default returns a configuration with sensible development defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "127.0.0.1", Port: 8080},
		Files:  FilesConfig{Root: "./files"},
		Compression: CompressionConfig{
			Enabled: true,
			Level:   "default",
			MinSize: 1024,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		EvalLog: EvalLogConfig{Path: "eval_log.db"},
	}
}
