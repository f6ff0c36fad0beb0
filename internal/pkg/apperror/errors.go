package apperror

import (
	"errors"
	"fmt"
)

// Ingestion stages, recorded on failures so callers know where a document died.
const (
	StageConverting = "converting"
	StageChunking   = "chunking"
	StageEmbedding  = "embedding"
	StageStoring    = "storing"
)

// ErrUnsupportedFormat is returned by the converter for file types outside the allowlist.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ConversionError indicates the external converter rejected or failed on a document.
// The document is skipped; the rest of the batch continues.
type ConversionError struct {
	DocID string
	Cause error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion failed for document %q: %v", e.DocID, e.Cause)
}

func (e *ConversionError) Unwrap() error { return e.Cause }

// EmbeddingTransientError marks a retryable embedding failure (rate limit, 5xx).
// The retry layer keeps these in-flight; callers never see one unless they
// inspect the chain of an EmbeddingFatalError.
type EmbeddingTransientError struct {
	Cause error
}

func (e *EmbeddingTransientError) Error() string {
	return fmt.Sprintf("transient embedding failure: %v", e.Cause)
}

func (e *EmbeddingTransientError) Unwrap() error { return e.Cause }

// EmbeddingFatalError is raised after retry exhaustion. BatchStart/BatchSize
// identify the offending input batch so the failed document can be reported.
type EmbeddingFatalError struct {
	BatchStart int
	BatchSize  int
	Cause      error
}

func (e *EmbeddingFatalError) Error() string {
	return fmt.Sprintf("embedding failed for batch [%d, %d): %v", e.BatchStart, e.BatchStart+e.BatchSize, e.Cause)
}

func (e *EmbeddingFatalError) Unwrap() error { return e.Cause }

// DimensionMismatchError indicates the provider returned a vector whose length
// does not match the configured dimension. This is a configuration bug, never
// retried.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: want %d, got %d", e.Want, e.Got)
}

// StorageConstraintError wraps an unexpected uniqueness violation outside the
// upsert path. Treated as a logic bug and surfaced as-is.
type StorageConstraintError struct {
	DocID string
	Cause error
}

func (e *StorageConstraintError) Error() string {
	return fmt.Sprintf("storage constraint violated for document %q: %v", e.DocID, e.Cause)
}

func (e *StorageConstraintError) Unwrap() error { return e.Cause }

// AnswerProviderError is the only fatal condition on the query path: the
// generation backend failed after retries. Callers should offer a retry, not
// crash.
type AnswerProviderError struct {
	Provider string
	Cause    error
}

func (e *AnswerProviderError) Error() string {
	return fmt.Sprintf("answer provider %q failed: %v", e.Provider, e.Cause)
}

func (e *AnswerProviderError) Unwrap() error { return e.Cause }

// IngestError ties a fatal ingestion failure to its document and stage.
type IngestError struct {
	DocID string
	Stage string
	Cause error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingestion of %q failed at stage %s: %v", e.DocID, e.Stage, e.Cause)
}

func (e *IngestError) Unwrap() error { return e.Cause }

// DocumentNotFoundError reports a lookup for a document id with no stored
// chunks.
type DocumentNotFoundError struct {
	DocID string
}

func (e *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document %q not found", e.DocID)
}
