package mapper

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/model"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.DocumentChunk) *entity.DocumentChunk {
	if c == nil {
		return nil
	}
	return &entity.DocumentChunk{
		Id:        c.Id,
		DocId:     c.DocId,
		ChunkId:   c.ChunkId,
		Content:   c.Content,
		Embedding: c.Embedding.Slice(),
		Meta:      map[string]interface{}(c.Meta),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *ChunkMapper) ToModel(c *entity.DocumentChunk) *model.DocumentChunk {
	if c == nil {
		return nil
	}
	return &model.DocumentChunk{
		Id:        c.Id,
		DocId:     c.DocId,
		ChunkId:   c.ChunkId,
		Content:   c.Content,
		Embedding: pgvector.NewVector(c.Embedding),
		Meta:      datatypes.JSONMap(c.Meta),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *ChunkMapper) ToEntities(chunks []*model.DocumentChunk) []*entity.DocumentChunk {
	entities := make([]*entity.DocumentChunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ChunkMapper) ToModels(chunks []*entity.DocumentChunk) []*model.DocumentChunk {
	models := make([]*model.DocumentChunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
