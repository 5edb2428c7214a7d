package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the full TOML-driven run configuration shared by the
// convert, load and verify subcommands.
type Config struct {
	Input           string       `toml:"input"`
	OutputDir       string       `toml:"output_dir"`
	DDLFile         string       `toml:"ddl_file"`
	Prefix          string       `toml:"prefix"`
	ChunkSizeMB     int          `toml:"chunk_size_mb"`
	Compress        string       `toml:"compress"` // none|zstd
	SchemaOnly      bool         `toml:"schema_only"`
	DataOnly        bool         `toml:"data_only"`
	DisableTriggers bool         `toml:"disable_triggers"`
	Workers         int          `toml:"workers"`
	MaxAttempts     int          `toml:"max_attempts"`
	Resume          bool         `toml:"resume"`
	StateFile       string       `toml:"state_file"`
	Source          SourceConfig `toml:"source"`
	Target          TargetConfig `toml:"target"`

	// configDir is the directory containing the TOML file, used to resolve
	// relative paths.
	configDir string
}

// SourceConfig identifies the source MySQL server (verify only; conversion
// itself reads the dump file, never the server).
type SourceConfig struct {
	DSN string `toml:"dsn"`
}

type TargetConfig struct {
	DSN string `toml:"dsn"`
}

// loadConfig reads a TOML config file and returns a Config with defaults
// applied and unknown keys rejected.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		Prefix:          "pg_inserts",
		ChunkSizeMB:     200,
		Compress:        "none",
		DisableTriggers: true,
		MaxAttempts:     3,
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers()
	}
	if cfg.ChunkSizeMB <= 0 {
		return nil, fmt.Errorf("chunk_size_mb must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max_attempts must be positive")
	}
	switch cfg.Compress {
	case "none", "zstd":
	default:
		return nil, fmt.Errorf("compress must be one of: none, zstd")
	}
	if cfg.SchemaOnly && cfg.DataOnly {
		return nil, fmt.Errorf("schema_only and data_only are mutually exclusive")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output_dir is required")
	}

	cfg.Input = cfg.resolvePath(cfg.Input)
	cfg.OutputDir = cfg.resolvePath(cfg.OutputDir)
	if cfg.DDLFile == "" {
		cfg.DDLFile = filepath.Join(cfg.OutputDir, "schema.sql")
	} else {
		cfg.DDLFile = cfg.resolvePath(cfg.DDLFile)
	}
	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(cfg.OutputDir, "load_state.db")
	} else {
		cfg.StateFile = cfg.resolvePath(cfg.StateFile)
	}

	return &cfg, nil
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}

// chunkBudget returns the chunk size budget in bytes.
func (c *Config) chunkBudget() int64 {
	return int64(c.ChunkSizeMB) * 1024 * 1024
}

// compressMode returns the compression mode in ChunkWriter terms.
func (c *Config) compressMode() string {
	if c.Compress == "none" {
		return ""
	}
	return c.Compress
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
