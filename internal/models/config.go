package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds configuration for the tracker
type Config struct {
	// Report settings
	ReportName      string `toml:"report_name" yaml:"report_name"`
	RequireEvidence bool   `toml:"require_evidence" yaml:"require_evidence"`
	SheetURL        string `toml:"sheet_url" yaml:"sheet_url"`

	Storage    StorageConfig    `toml:"storage" yaml:"storage"`
	Evidence   EvidenceConfig   `toml:"evidence" yaml:"evidence"`
	Classifier ClassifierConfig `toml:"classifier" yaml:"classifier"`
	Columns    ColumnsConfig    `toml:"columns" yaml:"columns"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
}

// StorageConfig selects the key-value backend
type StorageConfig struct {
	Backend       string `toml:"backend" yaml:"backend"` // "memory", "file", "sqlite", "redis"
	Dir           string `toml:"dir" yaml:"dir"`
	SQLitePath    string `toml:"sqlite_path" yaml:"sqlite_path"`
	RedisURL      string `toml:"redis_url" yaml:"redis_url"`
	MaxValueBytes int    `toml:"max_value_bytes" yaml:"max_value_bytes"`
}

// EvidenceConfig holds attachment limits
type EvidenceConfig struct {
	MaxFiles      int     `toml:"max_files" yaml:"max_files"`
	MaxFileMB     float64 `toml:"max_file_mb" yaml:"max_file_mb"`
	ContentDir    string  `toml:"content_dir" yaml:"content_dir"` // empty: inline data URLs
	ParallelReads int     `toml:"parallel_reads" yaml:"parallel_reads"`
}

// ClassifierConfig extends the built-in keyword tables
type ClassifierConfig struct {
	ExtraNCKeywords  []string `toml:"extra_nc_keywords" yaml:"extra_nc_keywords"`
	ExtraOKKeywords  []string `toml:"extra_ok_keywords" yaml:"extra_ok_keywords"`
	ExtraTextPhrases []string `toml:"extra_text_phrases" yaml:"extra_text_phrases"`
}

// ColumnsConfig holds candidate header names tried before the built-in ones
type ColumnsConfig struct {
	ID              []string `toml:"id" yaml:"id"`
	Category        []string `toml:"category" yaml:"category"`
	Finding         []string `toml:"finding" yaml:"finding"`
	Recommendation  []string `toml:"recommendation" yaml:"recommendation"`
	Severity        []string `toml:"severity" yaml:"severity"`
	Status          []string `toml:"status" yaml:"status"`
	RequirementRefA []string `toml:"requirement_ref_a" yaml:"requirement_ref_a"`
	RequirementRefB []string `toml:"requirement_ref_b" yaml:"requirement_ref_b"`
}

// LoggingConfig configures the zap logger built by the CLI
type LoggingConfig struct {
	Level string `toml:"level" yaml:"level"`
	JSON  bool   `toml:"json" yaml:"json"`
}

// MaxFileBytes converts the per-file cap to bytes
func (c EvidenceConfig) MaxFileBytes() int64 {
	return int64(c.MaxFileMB * 1024 * 1024)
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ReportName:      "Compliance Report AMIGOS",
		RequireEvidence: true,
		Storage: StorageConfig{
			Backend: "file",
			Dir:     defaultStoreDir(),
		},
		Evidence: EvidenceConfig{
			MaxFiles:      6,
			MaxFileMB:     2.0,
			ParallelReads: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nctracker"
	}
	return filepath.Join(home, ".local", "share", "nctracker")
}

// LoadConfig reads a TOML or YAML config file over the defaults.
// Fields absent from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("unsupported config format %q: use .toml or .yaml", filepath.Ext(path))
		}
	}
	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("NCTRACKER_STORE_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if url := os.Getenv("NCTRACKER_REDIS_URL"); url != "" {
		c.Storage.RedisURL = url
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "file", "sqlite", "redis":
	default:
		return fmt.Errorf("storage.backend must be memory, file, sqlite or redis, got %q", c.Storage.Backend)
	}
	if c.Evidence.MaxFiles <= 0 {
		return fmt.Errorf("evidence.max_files must be > 0, got %d", c.Evidence.MaxFiles)
	}
	if c.Evidence.MaxFileMB <= 0 {
		return fmt.Errorf("evidence.max_file_mb must be > 0, got %g", c.Evidence.MaxFileMB)
	}
	if c.Evidence.ParallelReads <= 0 {
		c.Evidence.ParallelReads = 1
	}
	if c.Storage.MaxValueBytes < 0 {
		return fmt.Errorf("storage.max_value_bytes must be >= 0, got %d", c.Storage.MaxValueBytes)
	}
	return nil
}
