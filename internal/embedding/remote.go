package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/k4ditano/notnative-app/internal/config"
	"github.com/k4ditano/notnative-app/internal/domain"
	"github.com/k4ditano/notnative-app/internal/metrics"
)

const (
	// maxBatchSize is the largest input list sent in one API request.
	// Bigger batches are split into sequential sub-batches.
	maxBatchSize = 100

	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	requestTimeout = 60 * time.Second
)

// remoteProvider talks to an OpenAI-compatible embeddings endpoint
// ({model, input} -> {data: [{embedding, index}]}) with bearer auth.
type remoteProvider struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	logger    *zap.Logger
}

func newRemoteProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (*remoteProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("remote embedding provider requires an API key: %w", domain.ErrInvalidConfig)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.APIURL
	clientCfg.HTTPClient = &http.Client{Timeout: requestTimeout}

	return &remoteProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.Model),
		dimension: cfg.Dimension,
		logger:    logger,
	}, nil
}

func (p *remoteProvider) Dimension() int {
	return p.dimension
}

func (p *remoteProvider) ProviderName() string {
	return config.ProviderRemote
}

// Embed implements domain.Embedder for a single text.
func (p *remoteProvider) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	resp, err := p.createEmbeddings(ctx, openai.EmbeddingRequest{
		Input: text,
		Model: p.model,
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Data) == 0 {
		p.countError("empty_response")
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	vec := resp.Data[0].Embedding
	if len(vec) != p.dimension {
		p.countError("dimension_mismatch")
		return domain.EmbeddingResult{}, fmt.Errorf(
			"embedding has %d dimensions, expected %d: %w",
			len(vec), p.dimension, domain.ErrVectorDimMismatch,
		)
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Inputs beyond
// maxBatchSize are split into sequential sub-batches whose results are
// concatenated in input order. Within one batch, response items are
// re-sorted by their explicit index field before extraction: the
// transport may deliver items out of order, and the index field, not
// arrival order, is ground truth.
func (p *remoteProvider) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	if len(texts) > maxBatchSize {
		var all domain.BatchEmbeddingResult
		all.Embeddings = make([][]float32, 0, len(texts))

		for start := 0; start < len(texts); start += maxBatchSize {
			end := start + maxBatchSize
			if end > len(texts) {
				end = len(texts)
			}
			sub, err := p.BatchEmbed(ctx, texts[start:end])
			if err != nil {
				return domain.BatchEmbeddingResult{}, err
			}
			all.Embeddings = append(all.Embeddings, sub.Embeddings...)
			all.PromptTokens += sub.PromptTokens
			all.TotalTokens += sub.TotalTokens
		}
		return all, nil
	}

	resp, err := p.createEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: p.model,
	})
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	// Integrity check against silent truncation: no partial results.
	if len(resp.Data) != len(texts) {
		p.countError("incomplete_batch")
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"incomplete batch response: sent %d texts, got %d embeddings: %w",
			len(texts), len(resp.Data), domain.ErrEmbeddingProviderError,
		)
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	embeddings := make([][]float32, len(data))
	for i, item := range data {
		if len(item.Embedding) != p.dimension {
			p.countError("dimension_mismatch")
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"embedding at index %d has %d dimensions, expected %d: %w",
				i, len(item.Embedding), p.dimension, domain.ErrVectorDimMismatch,
			)
		}
		embeddings[i] = item.Embedding
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// createEmbeddings performs one API call with bounded exponential
// backoff. HTTP 429 and 5xx responses and transport-level failures are
// retried; any other error is terminal. Exhausting retries surfaces
// the last observed error.
func (p *remoteProvider) createEmbeddings(
	ctx context.Context, req openai.EmbeddingRequest,
) (openai.EmbeddingResponse, error) {
	model := string(p.model)
	delay := initialBackoff

	var lastErr error
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := p.client.CreateEmbeddings(ctx, req)
		duration := time.Since(start)

		if err == nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues(p.ProviderName(), model, "success").Inc()
			metrics.EmbeddingRequestDuration.WithLabelValues(p.ProviderName(), model).Observe(duration.Seconds())
			if resp.Usage.TotalTokens > 0 {
				metrics.EmbeddingTokensTotal.WithLabelValues(p.ProviderName(), model, "prompt").
					Add(float64(resp.Usage.PromptTokens))
				metrics.EmbeddingTokensTotal.WithLabelValues(p.ProviderName(), model, "total").
					Add(float64(resp.Usage.TotalTokens))
			}
			return resp, nil
		}

		metrics.EmbeddingRequestsTotal.WithLabelValues(p.ProviderName(), model, "error").Inc()
		lastErr = p.classifyError(err)

		retryable, reason := isRetryable(err)
		if !retryable || attempt >= maxRetries {
			return openai.EmbeddingResponse{}, lastErr
		}

		metrics.EmbeddingRetriesTotal.WithLabelValues(p.ProviderName(), model, reason).Inc()
		p.logger.Warn("Embedding request failed, retrying",
			zap.String("reason", reason),
			zap.Duration("backoff", delay),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return openai.EmbeddingResponse{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// isRetryable reports whether an API call failure is transient and
// names the reason for the retry metric.
func isRetryable(err error) (bool, string) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, ""
	}

	if status, ok := httpStatus(err); ok {
		switch {
		case status == http.StatusTooManyRequests:
			return true, "rate_limited"
		case status >= 500:
			return true, "server_error"
		default:
			return false, ""
		}
	}

	// No HTTP status means the request never completed (connection
	// refused, reset, timeout below the context deadline).
	return true, "transport_error"
}

// httpStatus extracts the HTTP status code from a go-openai error.
func httpStatus(err error) (int, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode, true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, true
	}
	return 0, false
}

// classifyError wraps an API failure with the matching sentinel.
func (p *remoteProvider) classifyError(err error) error {
	if status, ok := httpStatus(err); ok {
		if status == http.StatusTooManyRequests {
			return fmt.Errorf("embedding API error %d: %v: %w", status, err, domain.ErrRateLimited)
		}
		return fmt.Errorf("embedding API error %d: %v: %w", status, err, domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("embedding request failed: %v: %w", err, domain.ErrEmbeddingProviderError)
}

func (p *remoteProvider) countError(errorType string) {
	metrics.EmbeddingErrorsTotal.WithLabelValues(p.ProviderName(), string(p.model), errorType).Inc()
}
