package implementation

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/mapper"
	"github.com/Hunter5Thompson/Alpha-01/internal/model"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/contract"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/specification"
)

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func (r *ChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChunkRepositoryImpl) UpsertBatch(ctx context.Context, chunks []*entity.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)

	// ON CONFLICT (doc_id, chunk_id) DO UPDATE keeps each row write atomic
	// and makes re-ingest overwrite instead of duplicate.
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "doc_id"}, {Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"content", "embedding", "meta", "updated_at",
		}),
	}).Create(models).Error
	if err != nil {
		return err
	}

	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ChunkRepositoryImpl) DeleteTail(ctx context.Context, docId string, fromChunkId int) error {
	return r.db.WithContext(ctx).
		Where("doc_id = ? AND chunk_id >= ?", docId, fromChunkId).
		Delete(&model.DocumentChunk{}).Error
}

func (r *ChunkRepositoryImpl) DeleteByDocId(ctx context.Context, docId string) error {
	return r.db.WithContext(ctx).
		Where("doc_id = ?", docId).
		Delete(&model.DocumentChunk{}).Error
}

func (r *ChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkRepositoryImpl) FindByKeys(ctx context.Context, keys []entity.ChunkKey) ([]*entity.DocumentChunk, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	pairs := make([][]interface{}, len(keys))
	for i, k := range keys {
		pairs[i] = []interface{}{k.DocId, k.ChunkId}
	}
	var models []*model.DocumentChunk
	err := r.db.WithContext(ctx).
		Where("(doc_id, chunk_id) IN ?", pairs).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentChunk{}).Count(&count).Error
	return count, err
}

func (r *ChunkRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 8
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query) recovers the similarity. Ties broken by the
	// natural key for deterministic ordering.
	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, 1 - (embedding <=> ?) AS similarity", queryVector).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "embedding <=> ?, doc_id ASC, chunk_id ASC",
			Vars: []interface{}{queryVector},
		}}).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk: r.mapper.ToEntity(&res.DocumentChunk),
			Score: res.Similarity,
		}
	}
	return scored, nil
}

func (r *ChunkRepositoryImpl) SearchLexical(ctx context.Context, query string, limit int) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 8
	}

	type result struct {
		model.DocumentChunk
		Rank float64
	}
	var results []result

	err := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, ts_rank(to_tsvector('simple', content), plainto_tsquery('simple', ?)) AS rank", query).
		Where("to_tsvector('simple', content) @@ plainto_tsquery('simple', ?)", query).
		Order("rank DESC, doc_id ASC, chunk_id ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk: r.mapper.ToEntity(&res.DocumentChunk),
			Score: res.Rank,
		}
	}
	return scored, nil
}
