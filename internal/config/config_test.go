package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultEmbedding(t *testing.T) {
	cfg := DefaultEmbedding()
	if !cfg.Enabled {
		t.Error("expected embedding enabled by default")
	}
	if cfg.Provider != ProviderRemote {
		t.Errorf("expected default provider %q, got %q", ProviderRemote, cfg.Provider)
	}
	if cfg.Dimension != 4096 {
		t.Errorf("expected default dimension 4096, got %d", cfg.Dimension)
	}
}

func TestEmbeddingConfig_IsValid(t *testing.T) {
	cfg := DefaultEmbedding()

	// Remote provider without API key is unusable.
	if cfg.IsValid() {
		t.Error("expected config without API key to be invalid")
	}

	cfg.APIKey = "test-key"
	if !cfg.IsValid() {
		t.Error("expected config with API key to be valid")
	}

	cfg.Enabled = false
	if cfg.IsValid() {
		t.Error("expected disabled config to be invalid")
	}
}

func TestEmbeddingConfig_Normalize(t *testing.T) {
	cfg := DefaultEmbedding()
	cfg.Provider = " Remote "
	cfg.Model = " qwen/test "

	if err := cfg.Normalize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != ProviderRemote {
		t.Errorf("expected normalized provider %q, got %q", ProviderRemote, cfg.Provider)
	}
	if cfg.Model != "qwen/test" {
		t.Errorf("expected trimmed model, got %q", cfg.Model)
	}
}

func TestEmbeddingConfig_NormalizeRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EmbeddingConfig)
	}{
		{"zero dimension", func(c *EmbeddingConfig) { c.Dimension = 0 }},
		{"oversized dimension", func(c *EmbeddingConfig) { c.Dimension = MaxDimension + 1 }},
		{"unsupported provider", func(c *EmbeddingConfig) { c.Provider = "openai" }},
		{"zero chunk tokens", func(c *EmbeddingConfig) { c.MaxChunkTokens = 0 }},
		{"overlap >= max", func(c *EmbeddingConfig) { c.OverlapTokens = c.MaxChunkTokens }},
		{"similarity out of range", func(c *EmbeddingConfig) { c.MinSimilarity = 1.5 }},
		{"negative similarity", func(c *EmbeddingConfig) { c.MinSimilarity = -0.1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultEmbedding()
			tc.mutate(&cfg)
			if err := cfg.Normalize(); err == nil {
				t.Errorf("expected Normalize to reject %s", tc.name)
			}
		})
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	yaml := `
storage:
  path: ${NOTES_DB_PATH:-notes.db}
embedding:
  enabled: true
  provider: remote
  api_key: ${NOTES_TEST_API_KEY}
  dimension: 1024
`
	if err := os.WriteFile(filepath.Join(cfgDir, "test.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("NOTES_TEST_API_KEY", "sk-test")
	t.Chdir(dir)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Storage.Path != "notes.db" {
		t.Errorf("expected default path fallback, got %q", cfg.Storage.Path)
	}
	if cfg.Embedding.Dimension != 1024 {
		t.Errorf("expected dimension 1024, got %d", cfg.Embedding.Dimension)
	}
	// Defaults fill unset fields.
	if cfg.Embedding.MaxChunkTokens != 512 {
		t.Errorf("expected default max_chunk_tokens, got %d", cfg.Embedding.MaxChunkTokens)
	}
}
