package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Hunter5Thompson/Alpha-01/internal/dto"
	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/pkg/embedding"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/answer"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/rerank"
	"github.com/Hunter5Thompson/Alpha-01/pkg/rag/retriever"

	gocache "github.com/patrickmn/go-cache"
)

// IQueryService answers questions against the chunk store.
type IQueryService interface {
	Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error)
}

type queryService struct {
	embedder   embedding.Provider
	retriever  *retriever.Retriever
	reranker   *rerank.Reranker
	generator  *answer.Generator
	defaultK   int
	defaultTop int
	embedCache *gocache.Cache
	log        logger.ILogger
}

func NewQueryService(
	embedder embedding.Provider,
	ret *retriever.Retriever,
	rr *rerank.Reranker,
	gen *answer.Generator,
	defaultK int,
	defaultTopN int,
	log logger.ILogger,
) IQueryService {
	if defaultK <= 0 {
		defaultK = 8
	}
	if defaultTopN <= 0 {
		defaultTopN = 5
	}
	return &queryService{
		embedder:   embedder,
		retriever:  ret,
		reranker:   rr,
		generator:  gen,
		defaultK:   defaultK,
		defaultTop: defaultTopN,
		embedCache: gocache.New(5*time.Minute, 10*time.Minute),
		log:        log,
	}
}

func (qs *queryService) Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error) {
	question := strings.TrimSpace(request.Question)
	if question == "" {
		return nil, fmt.Errorf("question must not be empty")
	}

	k := request.K
	if k <= 0 {
		k = qs.defaultK
	}
	topN := request.TopN
	if topN <= 0 {
		topN = qs.defaultTop
	}

	queryEmbedding, err := qs.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	candidates, err := qs.retriever.Retrieve(ctx, queryEmbedding, question, k)
	if err != nil {
		return nil, err
	}
	qs.log.Debug("query", "candidates retrieved", map[string]interface{}{
		"question_len": len(question),
		"candidates":   len(candidates),
	})

	if len(candidates) == 0 {
		return &dto.AskResponse{
			Question:  question,
			Answer:    answer.NoContextAnswer,
			Citations: []answer.Citation{},
			Sources:   []dto.SourceChunk{},
		}, nil
	}

	ranked := qs.reranker.Rerank(ctx, question, candidates, topN)

	contextChunks := make([]*entity.DocumentChunk, len(ranked))
	sources := make([]dto.SourceChunk, len(ranked))
	for i, r := range ranked {
		contextChunks[i] = r.Chunk
		sources[i] = dto.SourceChunk{
			DocId:   r.Chunk.DocId,
			ChunkId: r.Chunk.ChunkId,
			Score:   r.Score,
			Content: r.Chunk.Content,
		}
	}

	text, citations, err := qs.generator.Generate(ctx, question, contextChunks)
	if err != nil {
		return nil, err
	}

	return &dto.AskResponse{
		Question:  question,
		Answer:    text,
		Citations: citations,
		Sources:   sources,
	}, nil
}

// embedQuestion memoizes query embeddings so repeated questions within the
// cache window skip the embedding API round trip.
func (qs *queryService) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if cached, found := qs.embedCache.Get(question); found {
		return cached.([]float32), nil
	}

	vectors, err := qs.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one embedding for query, got %d", len(vectors))
	}

	qs.embedCache.Set(question, vectors[0], gocache.DefaultExpiration)
	return vectors[0], nil
}
