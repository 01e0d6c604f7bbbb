// Package embedding turns note text into fixed-dimension vectors
// through a configuration-selected provider.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/k4ditano/notnative-app/internal/config"
	"github.com/k4ditano/notnative-app/internal/domain"
)

// Provider is the embedding capability: vectorize one or many texts,
// report the vector dimension and the provider identity.
type Provider interface {
	domain.Embedder
	domain.BatchEmbedder
	Dimension() int
	ProviderName() string
}

// Client validates an embedding configuration, owns exactly one
// provider and exposes a uniform embed surface. It is immutable after
// construction.
type Client struct {
	provider Provider
	cfg      config.EmbeddingConfig
}

// NewClient normalizes and validates cfg, then selects the provider
// variant. Configuration errors are detected here, never at call time.
func NewClient(cfg config.EmbeddingConfig, logger *zap.Logger) (*Client, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInvalidConfig)
	}
	if !cfg.IsValid() {
		return nil, fmt.Errorf("embedding configuration is not usable (disabled, missing API key or empty model): %w", domain.ErrInvalidConfig)
	}

	var provider Provider
	switch cfg.Provider {
	case config.ProviderRemote:
		p, err := newRemoteProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	case config.ProviderLocal:
		provider = newLocalProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: %w", cfg.Provider, domain.ErrInvalidConfig)
	}

	return &Client{provider: provider, cfg: cfg}, nil
}

// Embed implements domain.Embedder.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return c.provider.Embed(ctx, text)
}

// BatchEmbed implements domain.BatchEmbedder.
func (c *Client) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return c.provider.BatchEmbed(ctx, texts)
}

// EmbedText returns the vector for a single text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	res, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Embedding, nil
}

// EmbedBatch returns one vector per input text, in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	res, err := c.provider.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, err
	}
	return res.Embeddings, nil
}

// Dimension returns the configured vector dimension.
func (c *Client) Dimension() int {
	return c.provider.Dimension()
}

// ProviderName returns the active provider identity.
func (c *Client) ProviderName() string {
	return c.provider.ProviderName()
}

// Config returns the effective, normalized configuration.
func (c *Client) Config() config.EmbeddingConfig {
	return c.cfg
}
