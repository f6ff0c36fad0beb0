package retriever

import (
	"context"
	"math"
	"sort"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/contract"
)

// Candidate is a retrieval result: a chunk plus the score used for ranking.
// HasVectorScore distinguishes a cosine similarity from a lexical-rank
// fallback in hybrid mode.
type Candidate struct {
	Chunk          *entity.DocumentChunk
	Score          float64
	HasVectorScore bool
}

// Retriever produces ranked candidate sets from the chunk store, either by
// pure vector k-NN (default) or by a hybrid union of lexical preselect and
// vector search.
type Retriever struct {
	chunks contract.ChunkRepository
	hybrid bool
	log    logger.ILogger
}

func New(chunks contract.ChunkRepository, hybrid bool, log logger.ILogger) *Retriever {
	return &Retriever{
		chunks: chunks,
		hybrid: hybrid,
		log:    log,
	}
}

// Retrieve returns at most k candidates in strictly descending score order.
// An empty corpus is not an error; it yields an empty slice meaning "no
// answerable context".
func (r *Retriever) Retrieve(ctx context.Context, queryEmbedding []float32, queryText string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = 8
	}
	if r.hybrid {
		return r.retrieveHybrid(ctx, queryEmbedding, queryText, k)
	}
	return r.retrieveVector(ctx, queryEmbedding, k)
}

func (r *Retriever) retrieveVector(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error) {
	scored, err := r.chunks.SearchSimilar(ctx, queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, len(scored))
	for i, s := range scored {
		candidates[i] = Candidate{
			Chunk:          s.Chunk,
			Score:          s.Score,
			HasVectorScore: true,
		}
	}
	return candidates, nil
}

// retrieveHybrid unions lexical and vector results by chunk key, scoring the
// union by vector similarity. Lexical matches the embedding ranked below k
// are kept for recall; a lexical row without a usable embedding keeps its
// lexical rank as the fallback key.
func (r *Retriever) retrieveHybrid(ctx context.Context, queryEmbedding []float32, queryText string, k int) ([]Candidate, error) {
	vector, err := r.chunks.SearchSimilar(ctx, queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	lexical, err := r.chunks.SearchLexical(ctx, queryText, k)
	if err != nil {
		// Lexical preselect is a recall enhancement; a failed text search
		// degrades to pure vector results.
		r.log.Warn("retriever", "lexical preselect failed, using vector results only", map[string]interface{}{
			"error": err.Error(),
		})
		lexical = nil
	}

	seen := make(map[entity.ChunkKey]bool, len(vector)+len(lexical))
	candidates := make([]Candidate, 0, len(vector)+len(lexical))

	for _, s := range vector {
		key := s.Chunk.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, Candidate{
			Chunk:          s.Chunk,
			Score:          s.Score,
			HasVectorScore: true,
		})
	}

	for _, s := range lexical {
		key := s.Chunk.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		if sim, ok := cosineSimilarity(queryEmbedding, s.Chunk.Embedding); ok {
			candidates = append(candidates, Candidate{
				Chunk:          s.Chunk,
				Score:          sim,
				HasVectorScore: true,
			})
		} else {
			candidates = append(candidates, Candidate{
				Chunk: s.Chunk,
				Score: s.Score,
			})
		}
	}

	sortCandidates(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// sortCandidates orders by descending score with deterministic ties on
// (doc_id, chunk_id) ascending.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Chunk.DocId != candidates[j].Chunk.DocId {
			return candidates[i].Chunk.DocId < candidates[j].Chunk.DocId
		}
		return candidates[i].Chunk.ChunkId < candidates[j].Chunk.ChunkId
	})
}

func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
