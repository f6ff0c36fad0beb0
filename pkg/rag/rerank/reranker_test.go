package rerank

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/pkg/llm"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/retriever"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	response string
	err      error
	calls    int
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, "", options...)
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.calls++
	return s.response, s.err
}

func makeCandidates(n int) []retriever.Candidate {
	candidates := make([]retriever.Candidate, n)
	for i := range candidates {
		candidates[i] = retriever.Candidate{
			Chunk: &entity.DocumentChunk{
				DocId:   "doc",
				ChunkId: i,
				Content: fmt.Sprintf("passage %d", i),
			},
			Score:          1.0 - float64(i)*0.1,
			HasVectorScore: true,
		}
	}
	return candidates
}

func TestRerank_ReordersByScore(t *testing.T) {
	provider := &stubProvider{response: `{"ranking":[
		{"doc_id":"doc","chunk_id":2,"score":0.95},
		{"doc_id":"doc","chunk_id":0,"score":0.60},
		{"doc_id":"doc","chunk_id":1,"score":0.20}
	]}`}
	r := New(provider, "test-model", logger.NewNopLogger())

	results := r.Rerank(context.Background(), "question", makeCandidates(3), 5)

	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Chunk.ChunkId)
	assert.Equal(t, 0, results[1].Chunk.ChunkId)
	assert.Equal(t, 1, results[2].Chunk.ChunkId)
	for i, res := range results {
		assert.Equal(t, i, res.Rank)
	}
}

func TestRerank_TruncatesToTopN(t *testing.T) {
	provider := &stubProvider{response: `{"ranking":[
		{"doc_id":"doc","chunk_id":0,"score":0.9},
		{"doc_id":"doc","chunk_id":1,"score":0.8},
		{"doc_id":"doc","chunk_id":2,"score":0.7},
		{"doc_id":"doc","chunk_id":3,"score":0.6}
	]}`}
	r := New(provider, "test-model", logger.NewNopLogger())

	results := r.Rerank(context.Background(), "question", makeCandidates(4), 2)

	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Chunk.ChunkId)
	assert.Equal(t, 1, results[1].Chunk.ChunkId)
}

func TestRerank_ProviderErrorFallsBackToRetrievalOrder(t *testing.T) {
	provider := &stubProvider{err: errors.New("rate limited")}
	r := New(provider, "test-model", logger.NewNopLogger())

	candidates := makeCandidates(4)
	results := r.Rerank(context.Background(), "question", candidates, 3)

	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, candidates[i].Chunk.ChunkId, res.Chunk.ChunkId)
		assert.Equal(t, candidates[i].Score, res.Score)
	}
}

func TestRerank_GarbageResponseFallsBack(t *testing.T) {
	provider := &stubProvider{response: "I refuse to produce JSON today."}
	r := New(provider, "test-model", logger.NewNopLogger())

	candidates := makeCandidates(3)
	results := r.Rerank(context.Background(), "question", candidates, 5)

	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, candidates[i].Chunk.ChunkId, res.Chunk.ChunkId)
	}
}

func TestRerank_PartialScoresKeepUnscoredBehind(t *testing.T) {
	// only chunk 2 gets a model score, the rest keep retrieval order after it
	provider := &stubProvider{response: `{"ranking":[{"doc_id":"doc","chunk_id":2,"score":0.99}]}`}
	r := New(provider, "test-model", logger.NewNopLogger())

	candidates := makeCandidates(4)
	results := r.Rerank(context.Background(), "question", candidates, 4)

	require.Len(t, results, 4)
	assert.Equal(t, 2, results[0].Chunk.ChunkId)
	assert.Equal(t, 0.99, results[0].Score)
	assert.Equal(t, 0, results[1].Chunk.ChunkId)
	assert.Equal(t, 1, results[2].Chunk.ChunkId)
	assert.Equal(t, 3, results[3].Chunk.ChunkId)
	// unscored entries keep their retrieval score
	assert.Equal(t, candidates[0].Score, results[1].Score)
}

func TestRerank_NeverFabricatesCandidates(t *testing.T) {
	provider := &stubProvider{response: `{"ranking":[
		{"doc_id":"other-doc","chunk_id":7,"score":1.0},
		{"doc_id":"doc","chunk_id":1,"score":0.5}
	]}`}
	r := New(provider, "test-model", logger.NewNopLogger())

	candidates := makeCandidates(2)
	results := r.Rerank(context.Background(), "question", candidates, 5)

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, "doc", res.Chunk.DocId)
	}
}

func TestRerank_EmptyCandidates(t *testing.T) {
	provider := &stubProvider{}
	r := New(provider, "test-model", logger.NewNopLogger())

	results := r.Rerank(context.Background(), "question", nil, 5)

	assert.Nil(t, results)
	assert.Zero(t, provider.calls)
}
