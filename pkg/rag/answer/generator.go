package answer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/apperror"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/pkg/llm"
)

// NoContextAnswer is the fixed response when retrieval produced nothing. The
// orchestrator substitutes it without ever invoking the generator.
const NoContextAnswer = "No relevant documents are available to answer this question."

// Generator synthesizes a cited answer from ranked context chunks. The
// generation backend behind llm.LLMProvider is chosen once at startup.
type Generator struct {
	provider      llm.LLMProvider
	providerName  string
	maxTokens     int
	retryTries    uint
	retryInterval time.Duration
	log           logger.ILogger
}

func NewGenerator(provider llm.LLMProvider, providerName string, maxTokens int, log logger.ILogger) *Generator {
	if maxTokens <= 0 {
		maxTokens = 600
	}
	return &Generator{
		provider:      provider,
		providerName:  providerName,
		maxTokens:     maxTokens,
		retryTries:    3,
		retryInterval: 1 * time.Second,
		log:           log,
	}
}

// Generate builds the grounded prompt, calls the provider and extracts the
// citations actually present in the output. Transient provider failures are
// retried with backoff; only exhaustion or a permanent failure surfaces as
// AnswerProviderError, the only fatal condition on the query path. An answer
// without citations is returned as-is with an empty citation list.
func (g *Generator) Generate(ctx context.Context, query string, contextChunks []*entity.DocumentChunk) (string, []Citation, error) {
	prompt := g.buildPrompt(query, contextChunks)

	text, err := g.generateWithRetry(ctx, prompt)
	if err != nil {
		return "", nil, &apperror.AnswerProviderError{
			Provider: g.providerName,
			Cause:    err,
		}
	}

	citations := ExtractCitations(text, contextChunks)
	if len(citations) == 0 {
		// Low grounding is informational, not an error.
		g.log.Info("answer", "generated answer carries no citations", map[string]interface{}{
			"context_chunks": len(contextChunks),
		})
	}
	return text, citations, nil
}

func (g *Generator) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	operation := func() (string, error) {
		text, err := g.provider.Generate(ctx, prompt,
			llm.WithTemperature(0.1),
			llm.WithMaxTokens(g.maxTokens),
		)
		if err != nil {
			if isTransient(err) {
				g.log.Warn("answer", "transient provider failure, retrying", map[string]interface{}{
					"provider": g.providerName,
					"error":    err.Error(),
				})
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		return text, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = g.retryInterval
	expo.MaxInterval = 30 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(g.retryTries),
	)
}

// isTransient classifies a provider failure. Statuses 429 and 5xx are rate
// limiting or backend trouble and worth retrying; other HTTP statuses mean
// the request itself is bad. Transport-level failures without a status are
// treated as retryable.
func isTransient(err error) bool {
	var st *llm.StatusError
	if errors.As(err, &st) {
		return st.Transient()
	}
	return true
}

func (g *Generator) buildPrompt(query string, contextChunks []*entity.DocumentChunk) string {
	var prompt strings.Builder

	prompt.WriteString("<context>\n")
	for _, chunk := range contextChunks {
		prompt.WriteString("[")
		prompt.WriteString(chunk.Reference())
		prompt.WriteString("]\n")
		prompt.WriteString(chunk.Content)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</context>\n\n")

	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a careful assistant answering questions about a document corpus.\n")
	prompt.WriteString("Use ONLY the context above. Do not bring in outside knowledge.\n")
	prompt.WriteString("Every factual claim must carry an inline citation marker of the form [doc_id#chunk_id],\n")
	prompt.WriteString("referencing one of the tagged context passages.\n")
	prompt.WriteString("If the context does not contain the answer, say so clearly.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<question>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</question>\n")

	return prompt.String()
}
