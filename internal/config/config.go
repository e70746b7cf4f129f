// Package config provides configuration loading and structs for analogyeval.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/analogyeval/internal/pare"
	"github.com/hyperjump/analogyeval/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Analogies  AnalogiesConfig  `yaml:"analogies"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
	Server     ServerConfig     `yaml:"server"`
	Pare       PareConfig       `yaml:"pare"`
}

// EmbeddingsConfig selects the vector table.
type EmbeddingsConfig struct {
	Path      string `yaml:"path"`
	VocabPath string `yaml:"vocab_path"`
	Format    string `yaml:"format"`
	// Normalize defaults to true when unset.
	Normalize *bool `yaml:"normalize"`
	TopK      int   `yaml:"top_k"`
	// CacheSize is how many loaded tables `evaluate --watch` keeps in memory.
	CacheSize int `yaml:"cache_size"`
}

// NormalizeOrDefault returns whether to normalize; defaults to true when unset.
func (e *EmbeddingsConfig) NormalizeOrDefault() bool {
	if e.Normalize != nil {
		return *e.Normalize
	}
	return true
}

// AnalogiesConfig describes the analogy file.
type AnalogiesConfig struct {
	Path           string `yaml:"path"`
	CategoryMarker string `yaml:"category_marker"`
	CaseSensitive  bool   `yaml:"case_sensitive"`
	// Category restricts evaluation to one category; empty evaluates all.
	Category string `yaml:"category"`
	// KeepMissing keeps analogies with terms outside the vocabulary; they rank last.
	KeepMissing bool `yaml:"keep_missing"`
}

// EvaluationConfig holds evaluator settings.
type EvaluationConfig struct {
	Workers          int      `yaml:"workers"`
	Measures         []string `yaml:"measures"`
	ProgressInterval int      `yaml:"progress_interval"`
	Centroids        bool     `yaml:"centroids"`
}

// Ranking returns the evaluator config for these settings.
func (e EvaluationConfig) Ranking() *ranking.Config {
	c := &ranking.Config{ProgressInterval: e.ProgressInterval}
	c.ApplyDefaults()
	return c
}

// OutputConfig controls report writing.
type OutputConfig struct {
	// Path is the report file; empty writes a timestamped file into Dir.
	Path   string `yaml:"path"`
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// StorageConfig holds the run database path. An empty path disables persistence.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PareConfig holds analogy paring settings.
type PareConfig struct {
	LexiconPath   string        `yaml:"lexicon_path"`
	ProgressEvery int           `yaml:"progress_every"`
	Criteria      pare.Criteria `yaml:"criteria"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Config{Pare: PareConfig{Criteria: pare.DefaultCriteria()}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Pare.Criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pare criteria: %w", err)
	}

	configDir := filepath.Dir(path)
	for _, p := range []*string{
		&cfg.Embeddings.Path,
		&cfg.Embeddings.VocabPath,
		&cfg.Analogies.Path,
		&cfg.Output.Path,
		&cfg.Output.Dir,
		&cfg.Storage.DatabasePath,
		&cfg.Pare.LexiconPath,
	} {
		*p = expandPath(*p, configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied, for runs without a file.
func Default() *Config {
	cfg := Config{Pare: PareConfig{Criteria: pare.DefaultCriteria()}}
	ApplyDefaults(&cfg)
	return &cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(configDir, path)
}
