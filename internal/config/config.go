package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported embedding provider variants.
const (
	ProviderRemote = "remote"
	ProviderLocal  = "local"
)

// MaxDimension is the upper bound accepted for embedding vector dimensions.
const MaxDimension = 4096

// Config holds the notnative retrieval core configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// StorageConfig holds the embedded store settings.
type StorageConfig struct {
	Path string `yaml:"path"` // sqlite database file
}

// EmbeddingConfig holds embedding and semantic search settings.
type EmbeddingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Provider       string  `yaml:"provider"` // remote, local
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	APIURL         string  `yaml:"api_url"`
	Dimension      int     `yaml:"dimension"`
	CacheEnabled   bool    `yaml:"cache_enabled"`
	MaxChunkTokens int     `yaml:"max_chunk_tokens"`
	OverlapTokens  int     `yaml:"overlap_tokens"`
	MinSimilarity  float64 `yaml:"min_similarity"`
}

// DefaultEmbedding returns the embedding defaults used when a field is unset.
func DefaultEmbedding() EmbeddingConfig {
	return EmbeddingConfig{
		Enabled:        true,
		Provider:       ProviderRemote,
		Model:          "qwen/qwen3-embedding-8b",
		APIURL:         "https://openrouter.ai/api/v1",
		Dimension:      4096,
		CacheEnabled:   true,
		MaxChunkTokens: 512,
		OverlapTokens:  50,
		MinSimilarity:  0.3,
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	def := DefaultEmbedding()
	if c.Storage.Path == "" {
		c.Storage.Path = "notes.db"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = def.Provider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = def.Model
	}
	if c.Embedding.APIURL == "" {
		c.Embedding.APIURL = def.APIURL
	}
	if c.Embedding.Dimension <= 0 {
		c.Embedding.Dimension = def.Dimension
	}
	if c.Embedding.MaxChunkTokens <= 0 {
		c.Embedding.MaxChunkTokens = def.MaxChunkTokens
	}
	if c.Embedding.OverlapTokens < 0 {
		c.Embedding.OverlapTokens = def.OverlapTokens
	}
	if c.Embedding.MinSimilarity <= 0 {
		c.Embedding.MinSimilarity = def.MinSimilarity
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	return c.Embedding.Normalize()
}

// IsValid reports whether the embedding configuration is usable as-is.
// It is a pure predicate; Normalize is the mutating counterpart.
func (c EmbeddingConfig) IsValid() bool {
	if !c.Enabled {
		return false
	}
	if c.Provider == ProviderRemote && c.APIKey == "" {
		return false
	}
	if c.Model == "" {
		return false
	}
	if c.Dimension <= 0 || c.Dimension > MaxDimension {
		return false
	}
	return true
}

// Normalize trims and lower-cases free-form fields and rejects
// structurally inconsistent values.
func (c *EmbeddingConfig) Normalize() error {
	c.Model = strings.TrimSpace(c.Model)
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.APIURL = strings.TrimSpace(c.APIURL)

	switch c.Provider {
	case ProviderRemote, ProviderLocal:
	default:
		return fmt.Errorf("unsupported embedding provider %q", c.Provider)
	}

	if c.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be greater than 0")
	}
	if c.Dimension > MaxDimension {
		return fmt.Errorf("embedding.dimension must be at most %d, got %d", MaxDimension, c.Dimension)
	}
	if c.MaxChunkTokens <= 0 {
		return fmt.Errorf("embedding.max_chunk_tokens must be greater than 0")
	}
	if c.OverlapTokens >= c.MaxChunkTokens {
		return fmt.Errorf(
			"embedding.overlap_tokens (%d) must be less than max_chunk_tokens (%d)",
			c.OverlapTokens, c.MaxChunkTokens,
		)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("embedding.min_similarity must be between 0.0 and 1.0, got %f", c.MinSimilarity)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
