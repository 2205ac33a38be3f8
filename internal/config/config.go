// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Engine     EngineConfig     `yaml:"engine"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Training   TrainingConfig   `yaml:"training"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the knowledge base, model artifacts, and the
// schedule database.
type StorageConfig struct {
	KnowledgeBasePath string `yaml:"knowledge_base_path"`
	ModelDir          string `yaml:"model_dir"`
	ModelBase         string `yaml:"model_base"`
	ScheduleDBPath    string `yaml:"schedule_db_path"`
}

// EngineConfig holds matching engine settings.
type EngineConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// NormalizerConfig holds text normalization settings. ExtraStopwords are added
// on top of the built-in English and Chinese sets.
type NormalizerConfig struct {
	ExtraStopwords []string `yaml:"extra_stopwords"`
}

// TrainingConfig holds default training hyperparameters.
type TrainingConfig struct {
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	MaxSeqLen    int     `yaml:"max_seq_len"`
	MinTokenFreq int     `yaml:"min_token_freq"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.KnowledgeBasePath = expandPath(cfg.Storage.KnowledgeBasePath, configDir)
	cfg.Storage.ModelDir = expandPath(cfg.Storage.ModelDir, configDir)
	cfg.Storage.ScheduleDBPath = expandPath(cfg.Storage.ScheduleDBPath, configDir)

	return &cfg, nil
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
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
