package dto

import "github.com/Hunter5Thompson/Alpha-01/pkg/rag/answer"

// IngestState names the stages a document moves through during ingestion.
type IngestState string

const (
	IngestPending    IngestState = "Pending"
	IngestConverting IngestState = "Converting"
	IngestChunking   IngestState = "Chunking"
	IngestEmbedding  IngestState = "Embedding"
	IngestStored     IngestState = "Stored"
	IngestFailed     IngestState = "Failed"
)

type IngestResult struct {
	DocId      string      `json:"doc_id"`
	State      IngestState `json:"state"`
	ChunkCount int         `json:"chunk_count"`
	Stage      string      `json:"failed_stage,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

type IngestBatchResult struct {
	Results []IngestResult `json:"results"`
	Stored  int            `json:"stored"`
	Failed  int            `json:"failed"`
}

type ChunkView struct {
	ChunkId int    `json:"chunk_id"`
	Content string `json:"content"`
}

type DocumentChunksResponse struct {
	DocId  string      `json:"doc_id"`
	Total  int64       `json:"total"`
	Chunks []ChunkView `json:"chunks"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required,min=1"`
	K        int    `json:"k" validate:"omitempty,min=1,max=50"`
	TopN     int    `json:"top_n" validate:"omitempty,min=1,max=20"`
}

type SourceChunk struct {
	DocId   string  `json:"doc_id"`
	ChunkId int     `json:"chunk_id"`
	Score   float64 `json:"score"`
	Content string  `json:"content"`
}

type AskResponse struct {
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Citations []answer.Citation `json:"citations"`
	Sources   []SourceChunk     `json:"sources"`
}

type ComposeRequest struct {
	Topic    string   `json:"topic" validate:"required,min=1"`
	Sections []string `json:"sections" validate:"omitempty,dive,min=1"`
}

type ComposeResponse struct {
	Topic    string            `json:"topic"`
	Document string            `json:"document"`
	Sections []ComposedSection `json:"sections"`
}

type ComposedSection struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Citations []answer.Citation `json:"citations"`
}
