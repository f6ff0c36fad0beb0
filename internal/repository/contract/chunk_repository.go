package contract

import (
	"context"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/specification"
)

// ScoredChunk wraps a chunk with its retrieval score. For vector search the
// score is cosine similarity in [-1, 1]; for lexical search it is the
// full-text rank.
type ScoredChunk struct {
	Chunk *entity.DocumentChunk
	Score float64
}

type ChunkRepository interface {
	// UpsertBatch writes chunks keyed by (doc_id, chunk_id). Existing rows
	// have content, embedding and meta replaced atomically; no duplicates,
	// no prior delete required.
	UpsertBatch(ctx context.Context, chunks []*entity.DocumentChunk) error

	// DeleteTail removes rows of docId with chunk_id >= fromChunkId. Used to
	// clean up orphaned trailing chunks after a document shrank on re-ingest.
	DeleteTail(ctx context.Context, docId string, fromChunkId int) error

	DeleteByDocId(ctx context.Context, docId string) error

	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	FindByKeys(ctx context.Context, keys []entity.ChunkKey) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilar returns up to limit chunks ordered by descending cosine
	// similarity to the query embedding; ties broken by (doc_id, chunk_id).
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*ScoredChunk, error)

	// SearchLexical returns up to limit chunks ordered by descending
	// full-text rank against the query.
	SearchLexical(ctx context.Context, query string, limit int) ([]*ScoredChunk, error)
}
