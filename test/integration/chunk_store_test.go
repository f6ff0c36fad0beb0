package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/contract"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/implementation"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/specification"
	"github.com/Hunter5Thompson/Alpha-01/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const embeddingDim = 3072

// testEmbedding builds a deterministic unit vector whose direction depends
// on the seed, so similarity ordering in assertions is predictable.
func testEmbedding(seed int) []float32 {
	v := make([]float32, embeddingDim)
	v[seed%embeddingDim] = 1
	return v
}

func testChunk(docId string, chunkId int, content string) *entity.DocumentChunk {
	return &entity.DocumentChunk{
		DocId:     docId,
		ChunkId:   chunkId,
		Content:   content,
		Embedding: testEmbedding(chunkId),
		Meta:      map[string]interface{}{"source_file": docId + ".md"},
	}
}

func setupChunkRepo(t *testing.T) contract.ChunkRepository {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	return implementation.NewChunkRepository(db)
}

func cleanupDocs(t *testing.T, repo contract.ChunkRepository, docIds ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, id := range docIds {
			if err := repo.DeleteByDocId(context.Background(), id); err != nil {
				t.Logf("cleanup of %s failed: %v", id, err)
			}
		}
	})
}

func TestChunkStore_IdempotentReingest(t *testing.T) {
	repo := setupChunkRepo(t)
	ctx := context.Background()
	docId := "itest-idempotent"
	cleanupDocs(t, repo, docId)

	chunks := []*entity.DocumentChunk{
		testChunk(docId, 0, "first section"),
		testChunk(docId, 1, "second section"),
		testChunk(docId, 2, "third section"),
	}

	require.NoError(t, repo.UpsertBatch(ctx, chunks))
	require.NoError(t, repo.UpsertBatch(ctx, chunks))

	count, err := repo.Count(ctx, specification.ByDocId{DocId: docId})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestChunkStore_ChangedContentOverwrites(t *testing.T) {
	repo := setupChunkRepo(t)
	ctx := context.Background()
	docId := "itest-overwrite"
	cleanupDocs(t, repo, docId)

	require.NoError(t, repo.UpsertBatch(ctx, []*entity.DocumentChunk{
		testChunk(docId, 0, "original text"),
	}))
	require.NoError(t, repo.UpsertBatch(ctx, []*entity.DocumentChunk{
		testChunk(docId, 0, "revised text"),
	}))

	found, err := repo.FindByKeys(ctx, []entity.ChunkKey{{DocId: docId, ChunkId: 0}})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "revised text", found[0].Content)
}

func TestChunkStore_ShrunkDocumentTailDeleted(t *testing.T) {
	repo := setupChunkRepo(t)
	ctx := context.Background()
	docId := "itest-shrink"
	cleanupDocs(t, repo, docId)

	long := make([]*entity.DocumentChunk, 5)
	for i := range long {
		long[i] = testChunk(docId, i, fmt.Sprintf("section %d", i))
	}
	require.NoError(t, repo.UpsertBatch(ctx, long))

	// re-ingest as a shorter document
	short := long[:2]
	require.NoError(t, repo.UpsertBatch(ctx, short))
	require.NoError(t, repo.DeleteTail(ctx, docId, len(short)))

	count, err := repo.Count(ctx, specification.ByDocId{DocId: docId})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestChunkStore_SharedChunkIdsAcrossDocs(t *testing.T) {
	repo := setupChunkRepo(t)
	ctx := context.Background()
	docA, docB := "itest-shared-a", "itest-shared-b"
	cleanupDocs(t, repo, docA, docB)

	require.NoError(t, repo.UpsertBatch(ctx, []*entity.DocumentChunk{
		testChunk(docA, 0, "doc a content"),
		testChunk(docB, 0, "doc b content"),
	}))

	countA, err := repo.Count(ctx, specification.ByDocId{DocId: docA})
	require.NoError(t, err)
	countB, err := repo.Count(ctx, specification.ByDocId{DocId: docB})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countA)
	assert.Equal(t, int64(1), countB)

	found, err := repo.FindByKeys(ctx, []entity.ChunkKey{
		{DocId: docA, ChunkId: 0},
		{DocId: docB, ChunkId: 0},
	})
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestChunkStore_ListingOrdersAndPages(t *testing.T) {
	repo := setupChunkRepo(t)
	ctx := context.Background()
	docId := "itest-listing"
	cleanupDocs(t, repo, docId)

	// insert out of order to prove the listing sorts by chunk_id
	require.NoError(t, repo.UpsertBatch(ctx, []*entity.DocumentChunk{
		testChunk(docId, 3, "section 3"),
		testChunk(docId, 0, "section 0"),
		testChunk(docId, 2, "section 2"),
		testChunk(docId, 1, "section 1"),
	}))

	page, err := repo.FindAll(ctx,
		specification.ByDocId{DocId: docId},
		specification.InDocumentOrder{},
		specification.Pagination{Limit: 2, Offset: 1},
	)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 1, page[0].ChunkId)
	assert.Equal(t, 2, page[1].ChunkId)
}

func TestChunkStore_SimilaritySearch(t *testing.T) {
	repo := setupChunkRepo(t)
	ctx := context.Background()
	docId := "itest-search"
	cleanupDocs(t, repo, docId)

	require.NoError(t, repo.UpsertBatch(ctx, []*entity.DocumentChunk{
		testChunk(docId, 0, "about apples"),
		testChunk(docId, 1, "about oranges"),
	}))

	// query along chunk 1's direction must rank chunk 1 first
	scored, err := repo.SearchSimilar(ctx, testEmbedding(1), 10)
	require.NoError(t, err)
	require.NotEmpty(t, scored)

	var best *contract.ScoredChunk
	for _, s := range scored {
		if s.Chunk.DocId == docId {
			best = s
			break
		}
	}
	require.NotNil(t, best, "expected a chunk of %s in the results", docId)
	assert.Equal(t, 1, best.Chunk.ChunkId)
	assert.InDelta(t, 1.0, best.Score, 1e-4)
}
