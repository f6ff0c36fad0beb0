package service

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Hunter5Thompson/Alpha-01/internal/dto"
	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/contract"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/specification"
	"github.com/Hunter5Thompson/Alpha-01/pkg/embedding"
	"github.com/Hunter5Thompson/Alpha-01/pkg/llm"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/answer"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/rerank"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/retriever"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	calls atomic.Int32
}

var _ embedding.Provider = (*stubEmbedder)(nil)

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (s *stubEmbedder) Dimension() int { return 3 }
func (s *stubEmbedder) Model() string  { return "stub-embed" }

type stubLLM struct {
	response string
	calls    int
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.Generate(ctx, "", options...)
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.calls++
	return s.response, nil
}

type memoryChunkRepo struct {
	mu     sync.Mutex
	chunks []*entity.DocumentChunk
}

func (m *memoryChunkRepo) UpsertBatch(ctx context.Context, chunks []*entity.DocumentChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		replaced := false
		for i, existing := range m.chunks {
			if existing.Key() == c.Key() {
				m.chunks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			m.chunks = append(m.chunks, c)
		}
	}
	return nil
}

func (m *memoryChunkRepo) DeleteTail(ctx context.Context, docId string, fromChunkId int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocId == docId && c.ChunkId >= fromChunkId {
			continue
		}
		kept = append(kept, c)
	}
	m.chunks = kept
	return nil
}

func (m *memoryChunkRepo) DeleteByDocId(ctx context.Context, docId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocId != docId {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	return nil
}
func (m *memoryChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*entity.DocumentChunk, len(m.chunks))
	copy(out, m.chunks)

	limit := -1
	offset := 0
	for _, s := range specs {
		switch sp := s.(type) {
		case specification.ByDocId:
			kept := out[:0]
			for _, c := range out {
				if c.DocId == sp.DocId {
					kept = append(kept, c)
				}
			}
			out = kept
		case specification.InDocumentOrder:
			sort.Slice(out, func(i, j int) bool {
				if out[i].DocId != out[j].DocId {
					return out[i].DocId < out[j].DocId
				}
				return out[i].ChunkId < out[j].ChunkId
			})
		case specification.Pagination:
			limit = sp.Limit
			offset = sp.Offset
		}
	}

	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
func (m *memoryChunkRepo) FindByKeys(ctx context.Context, keys []entity.ChunkKey) ([]*entity.DocumentChunk, error) {
	return nil, nil
}
func (m *memoryChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, c := range m.chunks {
		matched := true
		for _, s := range specs {
			if byDoc, ok := s.(specification.ByDocId); ok && c.DocId != byDoc.DocId {
				matched = false
				break
			}
		}
		if matched {
			n++
		}
	}
	return n, nil
}
func (m *memoryChunkRepo) SearchSimilar(ctx context.Context, emb []float32, limit int) ([]*contract.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scored := make([]*contract.ScoredChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		scored = append(scored, &contract.ScoredChunk{Chunk: c, Score: 0.8})
		if len(scored) == limit {
			break
		}
	}
	return scored, nil
}
func (m *memoryChunkRepo) SearchLexical(ctx context.Context, query string, limit int) ([]*contract.ScoredChunk, error) {
	return nil, nil
}

func newTestQueryService(repo contract.ChunkRepository, gen *stubLLM) (IQueryService, *stubEmbedder) {
	log := logger.NewNopLogger()
	embedder := &stubEmbedder{}
	ret := retriever.New(repo, false, log)
	rr := rerank.New(&stubLLM{response: "not json"}, "stub-rerank", log)
	generator := answer.NewGenerator(gen, "stub", 600, log)
	return NewQueryService(embedder, ret, rr, generator, 8, 5, log), embedder
}

func TestAsk_EmptyStoreShortCircuits(t *testing.T) {
	gen := &stubLLM{response: "should never be called"}
	qs, _ := newTestQueryService(&memoryChunkRepo{}, gen)

	res, err := qs.Ask(context.Background(), &dto.AskRequest{Question: "what is the limit?"})

	require.NoError(t, err)
	assert.Equal(t, answer.NoContextAnswer, res.Answer)
	assert.Empty(t, res.Citations)
	assert.Empty(t, res.Sources)
	assert.Zero(t, gen.calls, "no generation call on an empty store")
}

func TestAsk_AnswersWithCitations(t *testing.T) {
	repo := &memoryChunkRepo{chunks: []*entity.DocumentChunk{
		{DocId: "manual", ChunkId: 0, Content: "The limit is 50MB."},
		{DocId: "manual", ChunkId: 1, Content: "Limits apply per file."},
	}}
	gen := &stubLLM{response: "The limit is 50MB [manual#0]."}
	qs, _ := newTestQueryService(repo, gen)

	res, err := qs.Ask(context.Background(), &dto.AskRequest{Question: "what is the limit?"})

	require.NoError(t, err)
	assert.Equal(t, "The limit is 50MB [manual#0].", res.Answer)
	require.Len(t, res.Citations, 1)
	assert.Equal(t, answer.Citation{DocId: "manual", ChunkId: 0}, res.Citations[0])
	assert.Len(t, res.Sources, 2)
}

func TestAsk_EmptyQuestionRejected(t *testing.T) {
	qs, _ := newTestQueryService(&memoryChunkRepo{}, &stubLLM{})

	_, err := qs.Ask(context.Background(), &dto.AskRequest{Question: "   "})

	assert.Error(t, err)
}

func TestAsk_QueryEmbeddingMemoized(t *testing.T) {
	repo := &memoryChunkRepo{chunks: []*entity.DocumentChunk{
		{DocId: "manual", ChunkId: 0, Content: "The limit is 50MB."},
	}}
	qs, embedder := newTestQueryService(repo, &stubLLM{response: "answer [manual#0]"})

	_, err := qs.Ask(context.Background(), &dto.AskRequest{Question: "what is the limit?"})
	require.NoError(t, err)
	_, err = qs.Ask(context.Background(), &dto.AskRequest{Question: "what is the limit?"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), embedder.calls.Load())
}
