package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// NgramEmbedderConfig configures the local hashed character n-gram embedder.
type NgramEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
	MinN      int `yaml:"min_n"`
	MaxN      int `yaml:"max_n"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	Ngram  *NgramEmbedderConfig  `yaml:"ngram,omitempty"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OpenAIExtractorConfig holds configuration for the chat-completions extractor.
type OpenAIExtractorConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ExtractorConfig selects the skill extractor.
type ExtractorConfig struct {
	Type   string                 `yaml:"type"`
	OpenAI *OpenAIExtractorConfig `yaml:"openai,omitempty"`
}

// ClusterConfig tunes cluster-count selection and k-means.
type ClusterConfig struct {
	MaxK     int     `yaml:"max_k"`
	NInit    int     `yaml:"n_init"`
	MaxIter  int     `yaml:"max_iter"`
	Workers  int     `yaml:"workers"`
	Seed     int64   `yaml:"seed"`
	UsePCA   bool    `yaml:"use_pca"`
	Variance float64 `yaml:"variance"`
}

// RedisConfig contains connection details for the Redis embedding cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	TTLSecs  int    `yaml:"ttl_secs"`
}

// QdrantConfig holds connection details for the Qdrant embedding cache.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// CacheConfig selects the embedding cache.
type CacheConfig struct {
	Type   string        `yaml:"type"`
	Redis  *RedisConfig  `yaml:"redis,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Cluster   ClusterConfig   `yaml:"cluster"`
	Cache     CacheConfig     `yaml:"cache"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/skills-extractor/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects unknown component types and out-of-range tuning values.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "ngram", "openai":
	default:
		return fmt.Errorf("unknown embedder: %q", c.Embedder.Type)
	}
	switch c.Extractor.Type {
	case "openai", "split":
	default:
		return fmt.Errorf("unknown extractor: %q", c.Extractor.Type)
	}
	switch c.Cache.Type {
	case "none", "memory":
	case "redis":
		if c.Cache.Redis == nil || c.Cache.Redis.Addr == "" {
			return errors.New("redis cache requires cache.redis.addr")
		}
	case "qdrant":
		if c.Cache.Qdrant == nil || c.Cache.Qdrant.URL == "" {
			return errors.New("qdrant cache requires cache.qdrant.url")
		}
	default:
		return fmt.Errorf("unknown cache: %q", c.Cache.Type)
	}
	if c.Cluster.Variance <= 0 || c.Cluster.Variance > 1 {
		return fmt.Errorf("cluster.variance must be in (0, 1], got %v", c.Cluster.Variance)
	}
	if c.Cluster.MaxK < 0 {
		return fmt.Errorf("cluster.max_k must not be negative, got %d", c.Cluster.MaxK)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "skills-extractor", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder:  EmbedderConfig{Type: "ngram"},
		Extractor: ExtractorConfig{Type: "openai"},
		Cluster: ClusterConfig{
			NInit:    10,
			MaxIter:  300,
			Seed:     42,
			UsePCA:   true,
			Variance: 0.95,
		},
		Cache:  CacheConfig{Type: "memory"},
		Output: OutputConfig{Dir: "./outputs"},
		Log:    LogConfig{Level: "info"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "ngram"
	}
	if cfg.Embedder.Type == "ngram" {
		if cfg.Embedder.Ngram == nil {
			cfg.Embedder.Ngram = &NgramEmbedderConfig{}
		}
		if cfg.Embedder.Ngram.Dimension == 0 {
			cfg.Embedder.Ngram.Dimension = 512
		}
		if cfg.Embedder.Ngram.MinN == 0 {
			cfg.Embedder.Ngram.MinN = 2
		}
		if cfg.Embedder.Ngram.MaxN == 0 {
			cfg.Embedder.Ngram.MaxN = 4
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 64
		}
	}
	if cfg.Extractor.Type == "" {
		cfg.Extractor.Type = "openai"
	}
	if cfg.Extractor.Type == "openai" {
		if cfg.Extractor.OpenAI == nil {
			cfg.Extractor.OpenAI = &OpenAIExtractorConfig{}
		}
		if cfg.Extractor.OpenAI.BaseURL == "" {
			cfg.Extractor.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Extractor.OpenAI.APIKeyEnv == "" {
			cfg.Extractor.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Extractor.OpenAI.Model == "" {
			cfg.Extractor.OpenAI.Model = "gpt-3.5-turbo"
		}
		if cfg.Extractor.OpenAI.TimeoutSecs == 0 {
			cfg.Extractor.OpenAI.TimeoutSecs = 60
		}
	}
	if cfg.Cluster.NInit == 0 {
		cfg.Cluster.NInit = 10
	}
	if cfg.Cluster.MaxIter == 0 {
		cfg.Cluster.MaxIter = 300
	}
	if cfg.Cluster.Variance == 0 {
		cfg.Cluster.Variance = 0.95
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "memory"
	}
	if cfg.Cache.Type == "redis" && cfg.Cache.Redis != nil && cfg.Cache.Redis.Prefix == "" {
		cfg.Cache.Redis.Prefix = "skills-extractor:emb:"
	}
	if cfg.Cache.Type == "qdrant" && cfg.Cache.Qdrant != nil && cfg.Cache.Qdrant.Collection == "" {
		cfg.Cache.Qdrant.Collection = "skills_extractor_embeddings"
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "./outputs"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
