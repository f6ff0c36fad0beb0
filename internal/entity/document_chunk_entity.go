package entity

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is the atomic retrievable unit. (DocId, ChunkId) is globally
// unique; re-ingesting an unchanged document reproduces the same ChunkId
// sequence so that upserts overwrite instead of duplicating.
type DocumentChunk struct {
	Id        uuid.UUID
	DocId     string
	ChunkId   int
	Content   string
	Embedding []float32
	Meta      map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChunkKey identifies a chunk by its natural key.
type ChunkKey struct {
	DocId   string
	ChunkId int
}

func (c *DocumentChunk) Key() ChunkKey {
	return ChunkKey{DocId: c.DocId, ChunkId: c.ChunkId}
}

// Reference is the citation form used in prompts and answers.
func (c *DocumentChunk) Reference() string {
	return ChunkReference(c.DocId, c.ChunkId)
}

func ChunkReference(docId string, chunkId int) string {
	return docId + "#" + strconv.Itoa(chunkId)
}
