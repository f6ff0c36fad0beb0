package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Hunter5Thompson/Alpha-01/internal/dto"
	"github.com/Hunter5Thompson/Alpha-01/internal/entity"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/apperror"
	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/contract"
	"github.com/Hunter5Thompson/Alpha-01/internal/repository/specification"
	"github.com/Hunter5Thompson/Alpha-01/pkg/chunker"
	"github.com/Hunter5Thompson/Alpha-01/pkg/converter"
	"github.com/Hunter5Thompson/Alpha-01/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// IIngestService turns raw document files into stored, embedded chunks.
type IIngestService interface {
	IngestBytes(ctx context.Context, filename string, data []byte) (*dto.IngestResult, error)
	IngestFile(ctx context.Context, path string) (*dto.IngestResult, error)
	IngestDirectory(ctx context.Context, dir string) (*dto.IngestBatchResult, error)
	AutoIngestDirectory(ctx context.Context, dir string) (*dto.IngestBatchResult, error)
	Enqueue(ctx context.Context, filename string, data []byte) error
	ListDocumentChunks(ctx context.Context, docId string, limit, offset int) (*dto.DocumentChunksResponse, error)
	DeleteDocument(ctx context.Context, docId string) error
}

// PublishIngestMessage is the payload carried on the ingest topic.
type PublishIngestMessage struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

type ingestService struct {
	chunks      contract.ChunkRepository
	converter   converter.Converter
	splitter    *chunker.Chunker
	embedder    embedding.Provider
	pubSub      *gochannel.GoChannel
	topicName   string
	concurrency int
	maxBytes    int64
	log         logger.ILogger

	// one mutex per doc id so concurrent re-ingests of the same
	// document cannot interleave their upsert and tail delete
	docLocks sync.Map
}

func NewIngestService(
	chunks contract.ChunkRepository,
	conv converter.Converter,
	splitter *chunker.Chunker,
	embedder embedding.Provider,
	pubSub *gochannel.GoChannel,
	topicName string,
	concurrency int,
	maxFileSizeMB int,
	log logger.ILogger,
) IIngestService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ingestService{
		chunks:      chunks,
		converter:   conv,
		splitter:    splitter,
		embedder:    embedder,
		pubSub:      pubSub,
		topicName:   topicName,
		concurrency: concurrency,
		maxBytes:    int64(maxFileSizeMB) * 1024 * 1024,
		log:         log,
	}
}

// docIdUnsafe matches every character that may not appear in a document id.
// Citation markers embed the id as [doc_id#chunk_id], so brackets and '#'
// must never survive into it.
var docIdUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DocIdFromFilename derives the document identity from the file stem, so
// re-ingesting the same file replaces its chunks instead of duplicating them.
// The stem is sanitized to the citation-safe alphabet [A-Za-z0-9._-].
func DocIdFromFilename(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	id := docIdUnsafe.ReplaceAllString(stem, "_")
	id = strings.Trim(id, "._")
	if id == "" {
		return "document"
	}
	return id
}

func (is *ingestService) Enqueue(ctx context.Context, filename string, data []byte) error {
	if err := is.validateFile(filename, int64(len(data))); err != nil {
		return err
	}
	payload, err := json.Marshal(PublishIngestMessage{Filename: filename, Data: data})
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	return is.pubSub.Publish(is.topicName, msg)
}

func (is *ingestService) IngestFile(ctx context.Context, path string) (*dto.IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := is.validateFile(path, info.Size()); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return is.IngestBytes(ctx, filepath.Base(path), data)
}

func (is *ingestService) IngestDirectory(ctx context.Context, dir string) (*dto.IngestBatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		results []dto.IngestResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(is.concurrency)

	for _, e := range entries {
		if e.IsDir() || !converter.Supported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		g.Go(func() error {
			res, err := is.IngestFile(gctx, path)
			if err != nil {
				// a broken file must not abort the rest of the batch
				res = failedResult(DocIdFromFilename(path), err)
			}
			mu.Lock()
			results = append(results, *res)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &dto.IngestBatchResult{Results: results}
	for _, r := range results {
		if r.State == dto.IngestStored {
			batch.Stored++
		} else {
			batch.Failed++
		}
	}
	is.log.Info("ingest", "directory scan complete", map[string]interface{}{
		"dir":    dir,
		"stored": batch.Stored,
		"failed": batch.Failed,
	})
	return batch, nil
}

// AutoIngestDirectory ingests dir only when the store holds no chunks yet.
// It backs the boot-time seeding path, which must not re-embed the whole
// corpus on every restart.
func (is *ingestService) AutoIngestDirectory(ctx context.Context, dir string) (*dto.IngestBatchResult, error) {
	count, err := is.chunks.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		is.log.Info("ingest", "store already populated, skipping auto-ingest", map[string]interface{}{
			"dir":    dir,
			"chunks": count,
		})
		return &dto.IngestBatchResult{}, nil
	}
	return is.IngestDirectory(ctx, dir)
}

// ListDocumentChunks returns the stored chunks of one document in document
// order, with the total count so callers can page through large documents.
func (is *ingestService) ListDocumentChunks(ctx context.Context, docId string, limit, offset int) (*dto.DocumentChunksResponse, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	total, err := is.chunks.Count(ctx, specification.ByDocId{DocId: docId})
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, &apperror.DocumentNotFoundError{DocID: docId}
	}

	chunks, err := is.chunks.FindAll(ctx,
		specification.ByDocId{DocId: docId},
		specification.InDocumentOrder{},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	views := make([]dto.ChunkView, len(chunks))
	for i, c := range chunks {
		views[i] = dto.ChunkView{ChunkId: c.ChunkId, Content: c.Content}
	}
	return &dto.DocumentChunksResponse{DocId: docId, Total: total, Chunks: views}, nil
}

func (is *ingestService) IngestBytes(ctx context.Context, filename string, data []byte) (*dto.IngestResult, error) {
	docId := DocIdFromFilename(filename)

	lock, _ := is.docLocks.LoadOrStore(docId, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	is.log.Info("ingest", "document received", map[string]interface{}{
		"doc_id": docId,
		"state":  string(dto.IngestPending),
	})

	text, err := is.convert(ctx, docId, filename, data)
	if err != nil {
		return failedResult(docId, err), err
	}

	pieces, err := is.chunk(docId, text)
	if err != nil {
		return failedResult(docId, err), err
	}

	chunks, err := is.embed(ctx, docId, pieces, filename)
	if err != nil {
		return failedResult(docId, err), err
	}

	if err := is.store(ctx, docId, chunks); err != nil {
		return failedResult(docId, err), err
	}

	is.log.Info("ingest", "document stored", map[string]interface{}{
		"doc_id": docId,
		"state":  string(dto.IngestStored),
		"chunks": len(chunks),
	})
	return &dto.IngestResult{DocId: docId, State: dto.IngestStored, ChunkCount: len(chunks)}, nil
}

func (is *ingestService) convert(ctx context.Context, docId, filename string, data []byte) (string, error) {
	is.transition(docId, dto.IngestConverting)
	text, err := is.converter.Convert(ctx, filename, data)
	if err != nil {
		return "", &apperror.IngestError{DocID: docId, Stage: apperror.StageConverting, Cause: err}
	}
	return text, nil
}

func (is *ingestService) chunk(docId, text string) ([]string, error) {
	is.transition(docId, dto.IngestChunking)
	pieces := is.splitter.Split(text)
	if len(pieces) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil, &apperror.IngestError{
				DocID: docId,
				Stage: apperror.StageChunking,
				Cause: errors.New("document produced no text"),
			}
		}
		// degenerate input that the sentence splitter cannot segment
		// still yields a single chunk
		pieces = []string{trimmed}
	}
	return pieces, nil
}

func (is *ingestService) embed(ctx context.Context, docId string, pieces []string, filename string) ([]*entity.DocumentChunk, error) {
	is.transition(docId, dto.IngestEmbedding)
	vectors, err := is.embedder.Embed(ctx, pieces)
	if err != nil {
		return nil, &apperror.IngestError{DocID: docId, Stage: apperror.StageEmbedding, Cause: err}
	}

	ingestedAt := time.Now().UTC().Format(time.RFC3339)
	chunks := make([]*entity.DocumentChunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = &entity.DocumentChunk{
			DocId:     docId,
			ChunkId:   i,
			Content:   content,
			Embedding: vectors[i],
			Meta: map[string]interface{}{
				"source_file": filename,
				"model":       is.embedder.Model(),
				"ingested_at": ingestedAt,
			},
		}
	}
	return chunks, nil
}

func (is *ingestService) store(ctx context.Context, docId string, chunks []*entity.DocumentChunk) error {
	if err := is.chunks.UpsertBatch(ctx, chunks); err != nil {
		return &apperror.IngestError{DocID: docId, Stage: apperror.StageStoring, Cause: err}
	}
	// a shorter re-ingest must not leave stale chunks beyond the new tail
	if err := is.chunks.DeleteTail(ctx, docId, len(chunks)); err != nil {
		return &apperror.IngestError{DocID: docId, Stage: apperror.StageStoring, Cause: err}
	}
	return nil
}

func (is *ingestService) DeleteDocument(ctx context.Context, docId string) error {
	lock, _ := is.docLocks.LoadOrStore(docId, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return is.chunks.DeleteByDocId(ctx, docId)
}

func (is *ingestService) validateFile(filename string, size int64) error {
	if !converter.Supported(filename) {
		return fmt.Errorf("%w: %s", apperror.ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if is.maxBytes > 0 && size > is.maxBytes {
		return fmt.Errorf("file %s exceeds size limit of %d bytes", filepath.Base(filename), is.maxBytes)
	}
	return nil
}

func (is *ingestService) transition(docId string, state dto.IngestState) {
	is.log.Debug("ingest", "state transition", map[string]interface{}{
		"doc_id": docId,
		"state":  string(state),
	})
}

func failedResult(docId string, err error) *dto.IngestResult {
	res := &dto.IngestResult{DocId: docId, State: dto.IngestFailed, Reason: err.Error()}
	var ingestErr *apperror.IngestError
	if errors.As(err, &ingestErr) {
		res.Stage = ingestErr.Stage
	}
	return res
}
