package embedding

import (
	"context"
	"fmt"

	"github.com/k4ditano/notnative-app/internal/config"
	"github.com/k4ditano/notnative-app/internal/domain"
)

// localProvider is a deliberate placeholder for on-device embedding.
// It reports its configured dimension and name but fails every embed
// call; selecting it is a configuration decision, not a bug.
type localProvider struct {
	model     string
	dimension int
}

func newLocalProvider(cfg config.EmbeddingConfig) *localProvider {
	return &localProvider{
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
}

func (p *localProvider) Dimension() int {
	return p.dimension
}

func (p *localProvider) ProviderName() string {
	return config.ProviderLocal
}

func (p *localProvider) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, fmt.Errorf(
		"local embedding provider is not implemented yet, use %q: %w",
		config.ProviderRemote, domain.ErrNotImplemented,
	)
}

func (p *localProvider) BatchEmbed(_ context.Context, _ []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{}, fmt.Errorf(
		"local embedding provider is not implemented yet, use %q: %w",
		config.ProviderRemote, domain.ErrNotImplemented,
	)
}
