package service

import (
	"context"
	"encoding/json"

	"github.com/Hunter5Thompson/Alpha-01/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	ingest    IIngestService
	workers   int
	log       logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	ingest IIngestService,
	workers int,
	log logger.ILogger,
) IConsumerService {
	if workers <= 0 {
		workers = 4
	}
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		ingest:    ingest,
		workers:   workers,
		log:       log,
	}
}

// Consume starts a fixed pool of workers draining the ingest topic. Documents
// with the same doc id are still serialized downstream by the ingest
// service's per-doc locks.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	for i := 0; i < cs.workers; i++ {
		go func() {
			for msg := range messages {
				cs.processMessage(ctx, msg)
			}
		}()
	}

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload PublishIngestMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal ingest message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// invalid payloads can never succeed, ack to prevent redelivery
		msg.Ack()
		return
	}

	result, err := cs.ingest.IngestBytes(ctx, payload.Filename, payload.Data)
	if err != nil {
		cs.log.Error("consumer", "document ingestion failed", map[string]interface{}{
			"message_id": msg.UUID,
			"filename":   payload.Filename,
			"error":      err.Error(),
		})
		// failure is recorded per document, the message itself is done
		msg.Ack()
		return
	}

	cs.log.Info("consumer", "document ingested", map[string]interface{}{
		"message_id": msg.UUID,
		"doc_id":     result.DocId,
		"chunks":     result.ChunkCount,
	})
	msg.Ack()
}
