package rerank

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/pkg/llm"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/retriever"
)

// Result is a reranked candidate: the chunk, its relevance score and its
// final rank (0-based).
type Result struct {
	Chunk *entity.DocumentChunk
	Score float64
	Rank  int
}

// Reranker re-scores retrieval candidates with an LLM call. Reranking is a
// quality enhancement, not a correctness dependency: any failure, from the
// call itself to an unusable response, degrades to the original retrieval
// order. Rerank never returns an error.
type Reranker struct {
	provider llm.LLMProvider
	model    string
	log      logger.ILogger
}

func New(provider llm.LLMProvider, model string, log logger.ILogger) *Reranker {
	return &Reranker{
		provider: provider,
		model:    model,
		log:      log,
	}
}

// Rerank returns at most min(topN, len(candidates)) results, a reorder or
// truncation of the input set only.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []retriever.Candidate, topN int) []Result {
	if topN <= 0 {
		topN = 5
	}
	if len(candidates) == 0 {
		return nil
	}

	raw, err := r.provider.Generate(ctx, buildRankingPrompt(query, candidates),
		llm.WithTemperature(0.0),
		llm.WithModel(r.model),
	)
	if err != nil {
		r.log.Warn("rerank", "scoring call failed, falling back to retrieval order", map[string]interface{}{
			"error": err.Error(),
		})
		return fallback(candidates, topN)
	}

	known := make(map[entity.ChunkKey]bool, len(candidates))
	for _, c := range candidates {
		known[c.Chunk.Key()] = true
	}

	parsed := ParseRankingResponse(raw, known)
	if parsed.Status == Unparseable {
		r.log.Warn("rerank", "unusable ranking response, falling back to retrieval order", map[string]interface{}{
			"response_length": len(raw),
		})
		return fallback(candidates, topN)
	}

	// Scored candidates first, descending, stable on original retrieval
	// rank; unscored ones keep their retrieval order behind them.
	type scoredCandidate struct {
		candidate retriever.Candidate
		score     float64
		scored    bool
	}
	ordered := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		score, ok := parsed.Scores[c.Chunk.Key()]
		ordered[i] = scoredCandidate{candidate: c, score: score, scored: ok}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].scored != ordered[j].scored {
			return ordered[i].scored
		}
		return ordered[i].score > ordered[j].score
	})

	if len(ordered) > topN {
		ordered = ordered[:topN]
	}
	results := make([]Result, len(ordered))
	for i, sc := range ordered {
		score := sc.score
		if !sc.scored {
			score = sc.candidate.Score
		}
		results[i] = Result{
			Chunk: sc.candidate.Chunk,
			Score: score,
			Rank:  i,
		}
	}
	return results
}

// fallback truncates the original retrieval order to topN.
func fallback(candidates []retriever.Candidate, topN int) []Result {
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{
			Chunk: c.Chunk,
			Score: c.Score,
			Rank:  i,
		}
	}
	return results
}

func buildRankingPrompt(query string, candidates []retriever.Candidate) string {
	type passage struct {
		DocId   string `json:"doc_id"`
		ChunkId int    `json:"chunk_id"`
		Content string `json:"content"`
	}
	passages := make([]passage, len(candidates))
	for i, c := range candidates {
		passages[i] = passage{
			DocId:   c.Chunk.DocId,
			ChunkId: c.Chunk.ChunkId,
			Content: c.Chunk.Content,
		}
	}
	passagesJson, _ := json.Marshal(passages)

	var prompt strings.Builder
	prompt.WriteString("You sort document passages by their relevance to a question.\n")
	prompt.WriteString("Respond ONLY with a JSON object with the key `ranking`, whose value is a list of\n")
	prompt.WriteString(`objects of the form {"doc_id": str, "chunk_id": int, "score": float}. Higher scores are better.`)
	prompt.WriteString("\n\nQuestion:\n")
	prompt.WriteString(query)
	prompt.WriteString("\n\nPassages:\n")
	prompt.Write(passagesJson)
	prompt.WriteString("\n")
	return prompt.String()
}
