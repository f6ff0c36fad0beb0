package embedding

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/apperror"
)

// maxBatchSize caps how many inputs go into a single embeddings request.
const maxBatchSize = 96

// requestTimeout bounds a single embeddings call; the SDK default client
// carries no timeout and would hang ingestion on a stalled connection.
const requestTimeout = 120 * time.Second

// OpenAIProvider implements Provider on the OpenAI embeddings API.
type OpenAIProvider struct {
	client     *openai.Client
	model      string
	dimension  int
	maxRetries uint
}

var _ Provider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, model string, dimension int) *OpenAIProvider {
	return NewOpenAIProviderWithConfig(defaultClientConfig(apiKey), model, dimension)
}

func defaultClientConfig(apiKey string) openai.ClientConfig {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return cfg
}

// NewOpenAIProviderWithConfig allows pointing the client at a custom base URL,
// which the tests use to stand in a fake server.
func NewOpenAIProviderWithConfig(cfg openai.ClientConfig, model string, dimension int) *OpenAIProvider {
	if model == "" {
		model = "text-embedding-3-large"
	}
	if dimension <= 0 {
		dimension = 3072
	}
	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		dimension:  dimension,
		maxRetries: 3,
	}
}

func (p *OpenAIProvider) Dimension() int { return p.dimension }
func (p *OpenAIProvider) Model() string  { return p.model }

// Embed processes texts in provider-sized batches. Transient failures (rate
// limits, 5xx) are retried with exponential backoff; exhaustion escalates to
// an EmbeddingFatalError identifying the failed batch. A vector of the wrong
// length is a configuration error and is never retried.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchVectors, err := p.embedBatchWithRetry(ctx, batch)
		if err != nil {
			var dim *apperror.DimensionMismatchError
			if errors.As(err, &dim) {
				return nil, err
			}
			return nil, &apperror.EmbeddingFatalError{
				BatchStart: start,
				BatchSize:  len(batch),
				Cause:      err,
			}
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

func (p *OpenAIProvider) embedBatchWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	operation := func() ([][]float32, error) {
		vectors, err := p.embedBatch(ctx, batch)
		if err != nil {
			if isTransient(err) {
				return nil, &apperror.EmbeddingTransientError{Cause: err}
			}
			return nil, backoff.Permanent(err)
		}
		return vectors, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 1 * time.Second
	expo.MaxInterval = 30 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(p.maxRetries),
	)
}

func (p *OpenAIProvider) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	res, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.model),
		Input: batch,
	})
	if err != nil {
		return nil, err
	}
	if len(res.Data) != len(batch) {
		return nil, errors.New("embedding response length does not match input")
	}

	// API may return out of order; Index restores input order.
	vectors := make([][]float32, len(batch))
	for _, item := range res.Data {
		if item.Index < 0 || item.Index >= len(batch) {
			return nil, errors.New("embedding response index out of range")
		}
		if len(item.Embedding) != p.dimension {
			return nil, &apperror.DimensionMismatchError{
				Want: p.dimension,
				Got:  len(item.Embedding),
			}
		}
		vectors[item.Index] = normalize(item.Embedding)
	}
	return vectors, nil
}

// isTransient classifies rate limits and server errors as retryable.
func isTransient(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	// Dimension mismatches are handled above; treat raw transport errors as
	// retryable.
	var dim *apperror.DimensionMismatchError
	return !errors.As(err, &dim)
}

// normalize scales a vector to unit length. Cosine distance over pgvector
// expects normalized embeddings.
func normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)
	if magnitude == 0 {
		return vec
	}
	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
